package api

// RegisterRequest never carries the password: AuthKeyHash is the hex SHA-256
// of an Argon2id key derived on the client from PublicSalt.
type RegisterRequest struct {
	Username    string `json:"username"`
	AuthKeyHash string `json:"auth_key_hash"`
	PublicSalt  string `json:"public_salt"` // base64
}

type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// SaltResponse lets the client repeat the key derivation before login.
type SaltResponse struct {
	PublicSalt string `json:"public_salt"`
}

type LoginRequest struct {
	Username    string `json:"username"`
	AuthKeyHash string `json:"auth_key_hash"`
}

// TokenResponse выдается после успешного login; refresh token не предусмотрен
type TokenResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // секунды
}
