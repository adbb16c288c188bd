package models

import "time"

// 常量定义 - 避免magic number
const (
	// 字节单位转换（十进制，与服务商计费口径一致）
	BytesPerKB = 1000
	BytesPerMB = 1000 * 1000
	BytesPerGB = 1000 * 1000 * 1000

	// 默认值
	DefaultAPIBaseURL     = "https://api.decodo.com"
	DefaultServiceType    = ProxyTypeMobile
	DefaultRequestTimeout = 15 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"

	// 时间格式
	TimeFormatAPI      = "2006-01-02 15:04:05" // 统计接口要求的格式（UTC，无时区后缀）
	TimeFormatDay      = "2006-01-02"
	TimeFormatChartDay = "01-02"

	// 统计分组
	GroupByDay  = "day"
	GroupByHour = "hour"

	// 服务类型 (statistics 接口的 proxyType)
	ProxyTypeResidential         = "residential_proxies"
	ProxyTypeMobile              = "mobile_proxies"
	ProxyTypeDatacenter          = "datacenter_proxies"
	ProxyTypeUniversal           = "rtc_universal_proxies"
	ProxyTypeUniversalCore       = "rtc_universal_core_proxies"
	ProxyTypeSiteUnblocker       = "rtc_site_unblocker_proxies"
	ProxyTypeSiteUnblockerReq    = "rtc_site_unblocker_req_proxies"
	ProxyTypeProviderDefault     = "" // 不传 proxyType，由服务商决定
	ProxyTypeProviderDefaultName = "default"
)
