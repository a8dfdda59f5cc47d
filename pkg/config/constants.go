package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "OSCSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "OSCSHOP_DB_DSN"
	EnvDBHost = "OSCSHOP_DB_HOST"
	EnvDBUser = "OSCSHOP_DB_USER"
	EnvDBName = "OSCSHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
