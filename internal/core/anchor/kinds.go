package anchor

// Code points at a stored code item.
type Code string

// API points at a stored API definition.
type API string

// Combined points at a published graph.
type Combined string

// Publisher points at a publisher profile.
type Publisher string

// NewCode formats a code anchor; hash is lowercase hex.
func NewCode(tenant, hash string) Code {
	return Code(string(KindCode) + "#" + tenant + "#" + hash)
}

func NewAPI(tenant, hash string) API {
	return API(string(KindAPI) + "#" + tenant + "#" + hash)
}

func NewCombined(tenant, hash string) Combined {
	return Combined(string(KindCombined) + "#" + tenant + "#" + hash)
}

func (a Code) Parse() (Hashed, error)     { return ParseHashed(KindCode, string(a)) }
func (a API) Parse() (Hashed, error)      { return ParseHashed(KindAPI, string(a)) }
func (a Combined) Parse() (Hashed, error) { return ParseHashed(KindCombined, string(a)) }

func (a Publisher) Parse() (Sequenced, error) {
	return ParseSequenced(KindPublisher, string(a))
}
