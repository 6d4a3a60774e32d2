package models

// BloodType ABO/Rh 血型（规范化后的 8 种之一）
type BloodType string

const (
	APositive  BloodType = "A+"
	ANegative  BloodType = "A-"
	BPositive  BloodType = "B+"
	BNegative  BloodType = "B-"
	ABPositive BloodType = "AB+"
	ABNegative BloodType = "AB-"
	OPositive  BloodType = "O+"
	ONegative  BloodType = "O-"
)

// AllBloodTypes 固定顺序（用于库存列表、导出等需要稳定顺序的场景）
var AllBloodTypes = []BloodType{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

// inventoryKeys 血型 → 库存接口 JSON 键
var inventoryKeys = map[BloodType]string{
	APositive:  "aPositive",
	ANegative:  "aNegative",
	BPositive:  "bPositive",
	BNegative:  "bNegative",
	ABPositive: "abPositive",
	ABNegative: "abNegative",
	OPositive:  "oPositive",
	ONegative:  "oNegative",
}

// Valid 是否为 8 种合法血型之一
func (b BloodType) Valid() bool {
	_, ok := inventoryKeys[b]
	return ok
}

// InventoryKey 返回库存接口使用的键（如 "abNegative"），非法血型返回空字符串
func (b BloodType) InventoryKey() string {
	return inventoryKeys[b]
}

func (b BloodType) String() string {
	return string(b)
}

// ParseInventoryKey 库存键 → 血型
func ParseInventoryKey(key string) (BloodType, bool) {
	for bt, k := range inventoryKeys {
		if k == key {
			return bt, true
		}
	}
	return "", false
}
