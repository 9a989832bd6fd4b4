package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "TUTORBOOK_"

type Application struct {
	Host       string     `koanf:"host"`
	Port       int        `koanf:"port"`
	Database   Database   `koanf:"db"`
	Redis      Redis      `koanf:"redis"`
	Scheduling Scheduling `koanf:"scheduling"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Redis struct {
	Addr string `koanf:"addr"`
	Pass string `koanf:"pass"`
	DB   int    `koanf:"db"`
	// Prefix namespaces every key written by the search index.
	Prefix string `koanf:"prefix"`
}

type Scheduling struct {
	// Horizon bounds recurrence expansion for the search index.
	Horizon time.Duration `koanf:"horizon"`
	// Strict rejects meetings booked outside an attendee's availability.
	Strict         bool    `koanf:"strict"`
	ColumnWidth    float64 `koanf:"columnwidth"`
	MaxOccurrences int     `koanf:"maxoccurrences"`
	// Refresh is the cron schedule that rebuilds the search index.
	Refresh string `koanf:"refresh"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Port: 8181,
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "tutorbook",
			Pass:   "",
			Name:   "tutorbook",
			Schema: "tutorbook",
		},
		Redis: Redis{
			Addr:   "localhost:6379",
			DB:     0,
			Prefix: "tutorbook",
		},
		Scheduling: Scheduling{
			Horizon:        90 * 24 * time.Hour,
			Strict:         false,
			ColumnWidth:    82,
			MaxOccurrences: 5000,
			Refresh:        "*/15 * * * *",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
