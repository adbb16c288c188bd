package main

import (
	_ "time/tzdata" // 容器镜像中可能没有系统时区数据
)

func main() {
	Execute()
}
