package decodo

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"decodo-usage-bot/pkg/models"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON 响应体不是合法 JSON
var ErrInvalidJSON = errors.New("统计接口返回的不是合法 JSON")

// 不同产品线返回的字段名不一致，按顺序尝试
var (
	containerKeys = []string{"data", "result", "records", "rows", "items"}

	directByteKeys = []string{"rx_tx_bytes", "rxTxBytes", "rx_tx", "rxTx", "traffic_bytes", "trafficBytes", "bytes"}
	totalsByteKeys = []string{"rx_tx_bytes", "rxTxBytes", "rx_tx", "rxTx", "bytes", "total_rx_tx"}
	rxKeys         = []string{"rx_bytes", "rxBytes"}
	txKeys         = []string{"tx_bytes", "txBytes"}
	gbKeys         = []string{"traffic_gb", "trafficGB", "usage_gb", "usageGB"}
	mbKeys         = []string{"traffic_mb", "trafficMB", "usage_mb", "usageMB"}
	unitKeys       = []string{"traffic", "usage"}
	nestedKeys     = []string{"value", "metrics", "stat", "stats"}

	dateKeys        = []string{"date", "day", "timestamp", "time", "bucket", "startDate", "grouping_key", "groupingValue", "group", "key"}
	groupingKeys    = []string{"grouping", "groupKey", "grouping_key"}
	groupedDateKeys = []string{"date", "day", "timestamp", "time", "bucket", "startDate", "value"}
)

// maxNestDepth 嵌套对象的最大递归层数
const maxNestDepth = 3

// Traffic 解析后的统计数据
type Traffic struct {
	Daily      map[time.Time]uint64 // UTC 零点 -> 字节数
	Rows       int                  // 成功识别日期的行数
	TotalBytes *uint64              // metadata.totals.total_rx_tx（如果存在）
}

// ParseTraffic 从统计接口响应中提取每日流量
// 无法识别日期的行被跳过，小时粒度的行按日期合并
func ParseTraffic(body []byte) (*Traffic, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(body)

	t := &Traffic{Daily: make(map[time.Time]uint64)}

	if total := root.Get("metadata.totals.total_rx_tx"); total.Type == gjson.Number {
		v := toBytes(total.Float())
		t.TotalBytes = &v
	}

	if !root.IsObject() {
		return t, nil
	}

	for _, key := range containerKeys {
		val := root.Get(key)
		var rows []gjson.Result
		switch {
		case val.IsArray():
			rows = val.Array()
		case val.IsObject() && val.Get("items").IsArray():
			rows = val.Get("items").Array()
		default:
			continue
		}

		for _, row := range rows {
			if !row.IsObject() {
				continue
			}
			raw, ok := extractDate(row)
			if !ok {
				continue
			}
			day, err := ParseDay(raw)
			if err != nil {
				continue
			}
			b, _ := extractBytes(row, 0)
			t.Daily[day] += b
			t.Rows++
		}
	}

	return t, nil
}

// Sum 返回所有日期的字节总数
func (t *Traffic) Sum() uint64 {
	var sum uint64
	for _, b := range t.Daily {
		sum += b
	}
	return sum
}

// Records 按窗口的每一天生成记录，缺失日期补 0，窗口外的数据丢弃
func (t *Traffic) Records(window models.UsageWindow) []models.TrafficRecord {
	days := window.Days()
	records := make([]models.TrafficRecord, 0, len(days))
	for _, d := range days {
		records = append(records, models.TrafficRecord{Date: d, Bytes: t.Daily[d]})
	}
	return records
}

// extractDate 提取行的日期字段
func extractDate(row gjson.Result) (string, bool) {
	for _, key := range dateKeys {
		v := row.Get(key)
		if s := scalarString(v); s != "" {
			return s, true
		}
	}
	for _, key := range groupingKeys {
		v := row.Get(key)
		if !v.IsObject() {
			continue
		}
		for _, dk := range groupedDateKeys {
			if s := scalarString(v.Get(dk)); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// extractBytes 提取行的流量字节数，返回值 ok 表示找到了可识别的字段
func extractBytes(row gjson.Result, depth int) (uint64, bool) {
	for _, key := range directByteKeys {
		if b, ok := parseUnitValue(row.Get(key)); ok {
			return b, true
		}
	}

	if b, ok := sumRxTx(row); ok {
		return b, true
	}

	for _, key := range gbKeys {
		if v := row.Get(key); v.Type == gjson.Number {
			return toBytes(v.Float() * models.BytesPerGB), true
		}
	}
	for _, key := range mbKeys {
		if v := row.Get(key); v.Type == gjson.Number {
			return toBytes(v.Float() * models.BytesPerMB), true
		}
	}

	for _, key := range unitKeys {
		if b, ok := parseUnitValue(row.Get(key)); ok {
			return b, true
		}
	}

	if totals := row.Get("totals"); totals.IsObject() {
		for _, key := range totalsByteKeys {
			if v := totals.Get(key); v.Type == gjson.Number {
				return toBytes(v.Float()), true
			}
		}
		if b, ok := sumRxTx(totals); ok {
			return b, true
		}
	}

	if depth < maxNestDepth {
		for _, key := range nestedKeys {
			nested := row.Get(key)
			if !nested.IsObject() {
				continue
			}
			if b, ok := extractBytes(nested, depth+1); ok && b > 0 {
				return b, true
			}
		}
	}

	return 0, false
}

// sumRxTx 上下行分开返回时求和
func sumRxTx(obj gjson.Result) (uint64, bool) {
	rx := firstNumber(obj, rxKeys)
	tx := firstNumber(obj, txKeys)
	if !rx.Exists() && !tx.Exists() {
		return 0, false
	}
	return toBytes(rx.Float()) + toBytes(tx.Float()), true
}

func firstNumber(obj gjson.Result, keys []string) gjson.Result {
	for _, key := range keys {
		if v := obj.Get(key); v.Type == gjson.Number {
			return v
		}
	}
	return gjson.Result{}
}

// parseUnitValue 解析数字或带单位的字符串（如 "1.5GB"、"300 mb"、"42"），单位按十进制换算
func parseUnitValue(v gjson.Result) (uint64, bool) {
	switch v.Type {
	case gjson.Number:
		return toBytes(v.Float()), true
	case gjson.String:
	default:
		return 0, false
	}

	s := strings.ToLower(strings.TrimSpace(v.String()))
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "gb"):
		multiplier, s = models.BytesPerGB, strings.TrimSuffix(s, "gb")
	case strings.HasSuffix(s, "mb"):
		multiplier, s = models.BytesPerMB, strings.TrimSuffix(s, "mb")
	case strings.HasSuffix(s, "kb"):
		multiplier, s = models.BytesPerKB, strings.TrimSuffix(s, "kb")
	case strings.HasSuffix(s, "b"):
		s = strings.TrimSuffix(s, "b")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return toBytes(f * multiplier), true
}

// toBytes 浮点转字节数，负数和非法值按 0 处理
func toBytes(f float64) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}

func scalarString(v gjson.Result) string {
	switch v.Type {
	case gjson.String, gjson.Number:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// ParseDay 解析日期字符串，返回 UTC 零点
// 支持 "2024-05-01"、"2024-05-01 13:00:00"、"2024-05-01T13:00:00.000Z"
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	full := strings.ReplaceAll(s, "T", " ")
	full = strings.ReplaceAll(full, "Z", "")
	if i := strings.Index(full, "."); i > 0 {
		full = full[:i]
	}
	if t, err := time.Parse(models.TimeFormatAPI, full); err == nil {
		return models.TruncateDay(t), nil
	}

	if len(s) >= len(models.TimeFormatDay) {
		if t, err := time.Parse(models.TimeFormatDay, s[:len(models.TimeFormatDay)]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("无法识别的日期: " + s)
}
