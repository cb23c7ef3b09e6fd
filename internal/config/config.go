package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Name    string  `yaml:"name" json:"name" env:"NAME" env-default:"zendmn"` // used for OTEL as an application identifier
	Log     Log     `yaml:"log" json:"log"`
	Engine  Engine  `yaml:"engine" json:"engine"`
	Tracing Tracing `yaml:"tracing" json:"tracing"`
}

type Log struct {
	Level string `yaml:"level" json:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Engine struct {
	// ExpressionCacheSize is the number of parsed FEEL expressions kept in memory
	ExpressionCacheSize int    `yaml:"expressionCacheSize" json:"expressionCacheSize" env:"ENGINE_EXPRESSION_CACHE_SIZE" env-default:"4096"`
	DefinitionPath      string `yaml:"definitionPath" json:"definitionPath" env:"ENGINE_DEFINITION_PATH"`
	DecisionId          string `yaml:"decisionId" json:"decisionId" env:"ENGINE_DECISION_ID"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled" json:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Name     string `yaml:"name" json:"name" env:"OTEL_NAME" env-default:"zendmn"`
	Endpoint string `yaml:"endpoint" json:"endpoint" env:"OTEL_ENDPOINT" env-default:"localhost:4318"`
}

func (c Config) defaults() Config {
	if c.Tracing.Name == "" {
		c.Tracing.Name = c.Name
	}
	return c
}

// InitConfig reads the file named by CONFIG_FILE (./conf.yaml by default) or, when it does
// not exist, the environment.
func InitConfig() Config {
	c, err := ReadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("Error occurred while reading the configuration: %s\n", err)
		panic(err)
	}
	return c
}

func ReadConfig(fileName string) (Config, error) {
	c := Config{}
	if fileName == "" {
		wd, err := os.Getwd()
		if err != nil {
			return c, err
		}
		fileName = fmt.Sprintf("%s/conf.yaml", wd)
	}
	var err error
	if _, perr := os.Stat(fileName); errors.Is(perr, os.ErrNotExist) {
		err = cleanenv.ReadEnv(&c)
		fmt.Printf("Configuration file %s not found. Reading config from ENV.\n", fileName)
	} else {
		err = cleanenv.ReadConfig(fileName, &c)
	}
	if err != nil {
		return c, err
	}
	return c.defaults(), nil
}
