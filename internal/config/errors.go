package config

import (
	"errors"
	"fmt"
)

// ConfigurationError 表示组件构造时缺少必需的配置（通常是凭证）。
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// MissingCredential 构造一个凭证缺失错误。
func MissingCredential(key string) error {
	return &ConfigurationError{Key: key}
}

// IsConfigurationError 判断 err 是否为配置错误。
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
