package backend

// Roles as the backend spells them.
const (
	RoleStudent = "STUDENT"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

// User is the backend's profile record for a Telegram user.
type User struct {
	ID               string `json:"id"`
	Surname          string `json:"surname"`
	Name             string `json:"name"`
	Patronymic       string `json:"patronymic,omitempty"`
	Role             string `json:"role"`
	Group            string `json:"group,omitempty"`
	CompanyID        string `json:"companyId,omitempty"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
	IsApproved       bool   `json:"isApproved"`
}

// Company is one entry of the /company/all listing.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is a backend event record. Date and RegistrationDeadline are
// RFC 3339 strings on the wire.
type Event struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	Date                 string `json:"date"`
	RegistrationDeadline string `json:"registrationDeadline,omitempty"`
	Location             string `json:"location"`
}

// EventDraft is the create/edit payload for an event. Edits always send
// the full record, never a partial patch.
type EventDraft struct {
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	Date                 string `json:"date"`
	RegistrationDeadline string `json:"registrationDeadline,omitempty"`
	Location             string `json:"location"`
}

// Participant is one registered attendee of an event.
type Participant struct {
	ID      string `json:"id"`
	Surname string `json:"surname"`
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"`
	Email   string `json:"email,omitempty"`
}

// RegistrationRequest is the /auth/register-telegram payload. Optional
// fields are omitted entirely when empty; the backend distinguishes a
// missing patronymic from an empty one.
type RegistrationRequest struct {
	TelegramChatID   int64  `json:"telegramChatId"`
	TelegramUsername string `json:"telegramUsername"`
	Surname          string `json:"surname"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	Patronymic       string `json:"patronymic,omitempty"`
	Group            string `json:"group,omitempty"`
	CompanyID        string `json:"companyId,omitempty"`
}

// LoginProof is the /auth/telegram-login payload: the Telegram
// login-widget fields plus the HMAC proof over them.
type LoginProof struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	AuthDate  int64  `json:"authDate"`
	Hash      string `json:"hash"`
}

// LoginResult is a successful login response. RefreshToken may be absent.
type LoginResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
