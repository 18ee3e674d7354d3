package cnst

// Language codes
const (
	LangEN      = "en"
	LangZH      = "zh"
	LangDefault = LangEN
)

// Header and gin context keys
const (
	XLang            = "X-Lang"
	CtxKeyTranslator = "translator"
	CtxKeyPrincipal  = "principal"
	CtxKeyIdentity   = "identity"
)
