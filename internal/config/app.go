package config

import "github.com/joho/godotenv"

type AppConfig struct {
	Server ServerConfig
	Queue  QueueConfig
	Log    LogConfig
}

// LoadDotEnv reads the given files (default .env) into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	queueCfg, err := LoadQueue()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Queue:  queueCfg,
		Log:    logCfg,
	}, nil
}
