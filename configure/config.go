package configure

import (
	"bytes"
	"encoding/json"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ServerCfg struct {
	Level           string `mapstructure:"level"`
	ConfigFile      string `mapstructure:"config_file"`
	ListenerNetwork string `mapstructure:"listener_network"`
	ListenerAddress string `mapstructure:"listener_address"`
	RedisURI        string `mapstructure:"redis_uri"`
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDB         string `mapstructure:"mongo_db"`
	StoreDriver     string `mapstructure:"store_driver"`
	UserJWTSecret   string `mapstructure:"user_jwt_secret"`
	AdminJWTSecret  string `mapstructure:"admin_jwt_secret"`
	CandidateLimit  int    `mapstructure:"candidate_limit"`
	CandidateTTL    int    `mapstructure:"candidate_ttl"`
	ExitCode        int    `mapstructure:"exit_code"`
}

// default config
var defaultConf = ServerCfg{
	ConfigFile:      "config.yaml",
	ListenerNetwork: "tcp",
	ListenerAddress: ":3000",
	MongoDB:         "opinion",
	StoreDriver:     "mongo",
	CandidateLimit:  50,
	CandidateTTL:    3600,
}

var Config = viper.New()

func initLog() {
	if l, err := log.ParseLevel(Config.GetString("level")); err == nil {
		log.SetLevel(l)
	}
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"component", "category"},
	})
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Load layers defaults, flags, the config file and the environment into Config.
// It must run before any package reads Config.
func Load() {
	// Default config
	b, _ := json.Marshal(defaultConf)
	defaults := viper.New()
	defaults.SetConfigType("json")
	checkErr(defaults.ReadConfig(bytes.NewReader(b)))
	checkErr(Config.MergeConfigMap(defaults.AllSettings()))

	// Flags
	pflag.String("config_file", "config.yaml", "configure filename")
	pflag.String("level", "info", "Log level")
	pflag.String("listener_network", "tcp", "Network for the http listener.")
	pflag.String("listener_address", ":3000", "Address for the http listener.")
	pflag.String("redis_uri", "", "Address for the redis server.")
	pflag.String("mongo_uri", "", "Address for the mongodb server.")
	pflag.String("mongo_db", "opinion", "Database for the mongodb connection.")
	pflag.String("store_driver", "mongo", "Persistent store backend, mongo or memory.")
	pflag.String("user_jwt_secret", "", "HMAC secret for user access tokens.")
	pflag.String("admin_jwt_secret", "", "HMAC secret for admin access tokens.")
	pflag.Int("candidate_limit", 50, "Maximum polls kept in a user's candidate queue.")
	pflag.Int("candidate_ttl", 3600, "Seconds before a candidate queue expires.")
	pflag.String("version", "1.0", "Version of the system.")
	pflag.Int("exit_code", 0, "Status code for successful and graceful shutdown, [0-125].")
	pflag.Parse()
	checkErr(Config.BindPFlags(pflag.CommandLine))

	// File
	Config.SetConfigFile(Config.GetString("config_file"))
	Config.AddConfigPath(".")
	err := Config.ReadInConfig()
	if err != nil {
		log.Warning(err)
		log.Info("Using default config")
	} else {
		checkErr(Config.MergeInConfig())
	}

	// Environment
	replacer := strings.NewReplacer(".", "_")
	Config.SetEnvKeyReplacer(replacer)
	Config.AllowEmptyEnv(true)
	Config.AutomaticEnv()

	// Log
	initLog()

	// Print final config
	c := ServerCfg{}
	checkErr(Config.Unmarshal(&c))
	c.UserJWTSecret, c.AdminJWTSecret = redact(c.UserJWTSecret), redact(c.AdminJWTSecret)
	log.Debugf("Current configurations: \n%# v", pretty.Formatter(c))
}

func redact(s string) string {
	if s == "" {
		return s
	}
	return "<redacted>"
}
