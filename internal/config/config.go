package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Telegram Telegram `koanf:"telegram"`
	Google   Google   `koanf:"google"`
	Sync     Sync     `koanf:"sync"`
}

type Telegram struct {
	BotToken string `koanf:"bottoken"`
	ChatID   int64  `koanf:"chatid"`
}

type Google struct {
	CredentialsFile string `koanf:"credentialsfile"`
	TokenFile       string `koanf:"tokenfile"`
	CalendarID      string `koanf:"calendarid"`
}

type Sync struct {
	Strict   bool   `koanf:"strict"`
	Timezone string `koanf:"timezone"`
	Pattern  string `koanf:"pattern"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Google: Google{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			CalendarID:      "primary",
		},
		Sync: Sync{
			Timezone: "Asia/Singapore",
			Pattern:  "#MasterCal",
		},
	}, "koanf"), nil)
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
		Prefix: "MASTERCAL_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "MASTERCAL_")), "_", ".")
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

	if err := validate(app); err != nil {
		return Application{}, err
	}
	return app, nil
}

func validate(app Application) error {
	var missing []string
	if app.Telegram.BotToken == "" {
		missing = append(missing, "telegram.bottoken")
	}
	if app.Telegram.ChatID == 0 {
		missing = append(missing, "telegram.chatid")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
