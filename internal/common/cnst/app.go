package cnst

const (
	AppName     = "atelier"
	CommandName = "apiserver"
)

// Environments
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)
