package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// 库存快照来源（仅用于日志/展示，引擎对所有来源一视同仁）
const (
	SourceLive     = "live"
	SourceCache    = "cache"
	SourceFallback = "fallback"
	SourcePush     = "push"
)

// InventorySnapshot 血库库存快照（只读，由外部库存服务提供）
type InventorySnapshot struct {
	Units     map[BloodType]int            // 各血型单位数
	Cities    map[string]map[BloodType]int // 可选：各城市分布
	Source    string
	FetchedAt time.Time
}

// NewInventorySnapshot 创建快照
func NewInventorySnapshot(units map[BloodType]int, source string, fetchedAt time.Time) *InventorySnapshot {
	if units == nil {
		units = make(map[BloodType]int)
	}
	return &InventorySnapshot{
		Units:     units,
		Source:    source,
		FetchedAt: fetchedAt,
	}
}

// UnitsFor 某血型的单位数（缺失视为 0）
func (s *InventorySnapshot) UnitsFor(bt BloodType) int {
	if s == nil {
		return 0
	}
	return s.Units[bt]
}

// Total 总单位数
func (s *InventorySnapshot) Total() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, n := range s.Units {
		total += n
	}
	return total
}

// CityNames 城市列表（排序后）
func (s *InventorySnapshot) CityNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Cities))
	for name := range s.Cities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CityUnits 某血型在各城市的分布（按城市名排序）
func (s *InventorySnapshot) CityUnits(bt BloodType) []CityCount {
	var out []CityCount
	for _, name := range s.CityNames() {
		if n, ok := s.Cities[name][bt]; ok {
			out = append(out, CityCount{City: name, Units: n})
		}
	}
	return out
}

// CityCount 城市库存
type CityCount struct {
	City  string `json:"city"`
	Units int    `json:"units"`
}

// Clone 深拷贝
func (s *InventorySnapshot) Clone() *InventorySnapshot {
	if s == nil {
		return nil
	}
	cp := &InventorySnapshot{
		Units:     make(map[BloodType]int, len(s.Units)),
		Source:    s.Source,
		FetchedAt: s.FetchedAt,
	}
	for bt, n := range s.Units {
		cp.Units[bt] = n
	}
	if s.Cities != nil {
		cp.Cities = make(map[string]map[BloodType]int, len(s.Cities))
		for city, units := range s.Cities {
			m := make(map[BloodType]int, len(units))
			for bt, n := range units {
				m[bt] = n
			}
			cp.Cities[city] = m
		}
	}
	return cp
}

// inventoryPayload 库存接口 / 缓存 / MQTT 推送共用的 JSON 结构
// {"inventory":{"aPositive":45,...},"cities":{"Mumbai":{"aPositive":12}},"source":"live","fetched_at":"..."}
type inventoryPayload struct {
	Inventory map[string]int            `json:"inventory"`
	Cities    map[string]map[string]int `json:"cities,omitempty"`
	Source    string                    `json:"source,omitempty"`
	FetchedAt *time.Time                `json:"fetched_at,omitempty"`
}

// MarshalJSON 以库存键输出
func (s InventorySnapshot) MarshalJSON() ([]byte, error) {
	p := inventoryPayload{
		Inventory: toKeyed(s.Units),
		Source:    s.Source,
	}
	if !s.FetchedAt.IsZero() {
		t := s.FetchedAt
		p.FetchedAt = &t
	}
	if len(s.Cities) > 0 {
		p.Cities = make(map[string]map[string]int, len(s.Cities))
		for city, units := range s.Cities {
			p.Cities[city] = toKeyed(units)
		}
	}
	return json.Marshal(p)
}

// UnmarshalJSON 解析库存键；未知键报错，负数报错
func (s *InventorySnapshot) UnmarshalJSON(data []byte) error {
	var p inventoryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Inventory == nil {
		return fmt.Errorf("inventory payload missing \"inventory\" object")
	}
	units, err := fromKeyed(p.Inventory)
	if err != nil {
		return err
	}
	s.Units = units
	s.Cities = nil
	if len(p.Cities) > 0 {
		s.Cities = make(map[string]map[BloodType]int, len(p.Cities))
		for city, keyed := range p.Cities {
			m, err := fromKeyed(keyed)
			if err != nil {
				return fmt.Errorf("city %s: %w", city, err)
			}
			s.Cities[city] = m
		}
	}
	s.Source = p.Source
	if p.FetchedAt != nil {
		s.FetchedAt = *p.FetchedAt
	}
	return nil
}

func toKeyed(units map[BloodType]int) map[string]int {
	out := make(map[string]int, len(units))
	for bt, n := range units {
		if key := bt.InventoryKey(); key != "" {
			out[key] = n
		}
	}
	return out
}

func fromKeyed(keyed map[string]int) (map[BloodType]int, error) {
	out := make(map[BloodType]int, len(keyed))
	for key, n := range keyed {
		bt, ok := ParseInventoryKey(key)
		if !ok {
			return nil, fmt.Errorf("unknown inventory key %q", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative unit count for %s: %d", key, n)
		}
		out[bt] = n
	}
	return out, nil
}
