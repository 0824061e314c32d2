package dto

// SessionCredential is the header bundle minted by the interactive BambooHR
// login helper. It authenticates only the legacy AJAX endpoints; expiry is
// undocumented, so it is treated as a cache and regenerated on 401/403.
// JSON keys match the headers file the login helper writes.
type SessionCredential struct {
	Cookie        string `json:"Cookie"`
	UserAgent     string `json:"User-Agent"`
	Referer       string `json:"Referer"`
	Accept        string `json:"Accept"`
	RequestedWith string `json:"X-Requested-With"`
}

func (c SessionCredential) IsZero() bool {
	return c.Cookie == ""
}
