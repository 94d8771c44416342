package domain

// GoogleUserInfo mirrors the fields returned by Google's userinfo endpoint and
// the claims of a validated Google ID token that this application consumes.
type GoogleUserInfo struct {
	ID            string `json:"id"` // Google's stable "sub" identifier
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
