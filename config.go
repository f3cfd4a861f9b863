package tendercrawler

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// configService reads settings from an optional .env file and the environment.
type configService struct {
	v *viper.Viper
}

func newConfig() *configService {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	v.SetDefault("SITE_NAME", "kepco")
	v.SetDefault("KEPCO_BASE_URL", "https://srm.kepco.net")
	v.SetDefault("KEPCO_SEARCH_URL", "https://srm.kepco.net/index.do")
	v.SetDefault("BROWSER_ADAPTER", PlayWrightEngine)
	v.SetDefault("STORAGE_DIR", "storage")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("DOCUMENT_WORKERS", 4)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading Config file: %v\n", err)
		}
	}

	return &configService{v: v}
}

func (c *configService) EnvString(envName string, defaultValue ...string) string {
	value := c.v.Get(envName)
	if value != nil && fmt.Sprint(value) != "" {
		return fmt.Sprint(value)
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *configService) GetString(path string) string {
	return c.v.GetString(path)
}

func (c *configService) GetInt(path string) int {
	return c.v.GetInt(path)
}

func (c *configService) GetBool(path string) bool {
	return c.v.GetBool(path)
}

func (c *configService) GetDuration(path string) time.Duration {
	return c.v.GetDuration(path)
}

func (c *configService) isLocalEnv() bool {
	return isLocalEnv(c.GetString("APP_ENV"))
}
