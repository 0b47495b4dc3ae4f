package viper

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	spfviper "github.com/spf13/viper"
)

// EnvPrefix 是可覆盖配置项的环境变量前缀，例如 RINGER_STORAGE_COMPRESSION 覆盖 storage.compression。
const EnvPrefix = "RINGER"

// Config 封装 spf13/viper 实例，对外提供精简的 YAML/JSON 配置加载接口。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config，已绑定 EnvPrefix 前缀的环境变量。
func New() *Config {
	v := spfviper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Config{v: v}
}

// LoadFile 将 YAML 或 JSON 配置文件加载到 Config 中。
// 文件类型通过扩展名（.yaml/.yml/.json）推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		// 让 viper 自行推断类型，或在读取时返回清晰的错误信息。
	}

	return c.v.ReadInConfig()
}

// SetDefault 设置 key 的默认值，也使 AutomaticEnv 能够覆盖未出现在文件中的 key。
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

// SetDefaults 将结构体 defaults 展开为以 prefix 开头的默认值。
func (c *Config) SetDefaults(prefix string, defaults any) error {
	var flat map[string]any
	if err := mapstructure.Decode(defaults, &flat); err != nil {
		return err
	}
	for k, v := range flat {
		c.v.SetDefault(prefix+"."+k, v)
	}
	return nil
}

func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// Unmarshal 将完整配置反序列化到 dst，环境变量覆盖只对已知 key（出现在文件或默认值中）生效。
// dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst，不应用环境变量覆盖。
// dst 应为结构体或 map 的指针。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}
