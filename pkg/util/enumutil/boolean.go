package enumutil

// Boolean 是可由配置字符串解析的布尔枚举。
type Boolean int

const (
	False Boolean = iota
	True
)

// BooleanStr 解析 true/false、1/0、yes/no、on/off，忽略大小写。
var BooleanStr = New("BooleanStr",
	map[Boolean]string{False: "False", True: "True"},
	WithIgnoreCase[Boolean](),
	WithAliases(map[string]Boolean{
		"no": False, "off": False,
		"yes": True, "on": True,
	}),
)

// ParseBool 将 v 解析为 bool。
func ParseBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	b, err := BooleanStr.Retrieve(v)
	if err != nil {
		return false, err
	}
	return b == True, nil
}
