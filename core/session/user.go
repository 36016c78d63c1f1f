package session

// Role is fixed at registration and never changes.
type Role string

const (
	RolePatient    Role = "patient"
	RoleResearcher Role = "researcher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleResearcher
}

// ConsentPreferences are patient-controlled flags for downstream data use.
// Nothing in this layer enforces them.
type ConsentPreferences struct {
	AllowAnonymizedData    bool `json:"allowAnonymizedData"`
	AllowContactForStudies bool `json:"allowContactForStudies"`
	AllowDataAnalytics     bool `json:"allowDataAnalytics"`
}

// DefaultConsent is assigned to every newly registered user.
func DefaultConsent() ConsentPreferences {
	return ConsentPreferences{
		AllowAnonymizedData:    true,
		AllowContactForStudies: false,
		AllowDataAnalytics:     true,
	}
}

// User is the session identity. It never carries a password.
type User struct {
	ID                 string              `json:"id"`
	Email              string              `json:"email"`
	Name               string              `json:"name"`
	Role               Role                `json:"role"`
	WalletAddress      string              `json:"walletAddress"`
	Institution        string              `json:"institution,omitempty"`
	VerificationStatus string              `json:"verificationStatus,omitempty"`
	ConsentPreferences *ConsentPreferences `json:"consentPreferences,omitempty"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ConsentPreferences != nil {
		cp := *u.ConsentPreferences
		c.ConsentPreferences = &cp
	}
	return &c
}

// Credential is one row of the login table.
type Credential struct {
	User
	Password string
}

// DefaultCredentials returns the two seeded demo accounts. The passwords are
// a development fixture, not a security boundary.
func DefaultCredentials() []Credential {
	return []Credential{
		{
			User: User{
				ID:            "1",
				Email:         "patient@example.com",
				Name:          "Jane Smith",
				Role:          RolePatient,
				WalletAddress: "0x1234567890abcdef1234567890abcdef12345678",
				ConsentPreferences: &ConsentPreferences{
					AllowAnonymizedData:    true,
					AllowContactForStudies: false,
					AllowDataAnalytics:     true,
				},
			},
			Password: "password123",
		},
		{
			User: User{
				ID:                 "2",
				Email:              "researcher@example.com",
				Name:               "Dr. John Doe",
				Role:               RoleResearcher,
				Institution:        "Medical Research Institute",
				WalletAddress:      "0xabcdef1234567890abcdef1234567890abcdef12",
				VerificationStatus: "verified",
			},
			Password: "password123",
		},
	}
}

// RegisterRequest carries the fields accepted by Register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
// ConsentPreferences replaces the whole preference set.
type ProfileUpdate struct {
	Name               *string             `json:"name,omitempty"`
	Email              *string             `json:"email,omitempty"`
	Institution        *string             `json:"institution,omitempty"`
	ConsentPreferences *ConsentPreferences `json:"consentPreferences,omitempty"`
}
