package models

// User is the read-only identity record owned by the auth service.
type User struct {
	ID        int    `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Email     string `db:"email" json:"email,omitempty"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	AvatarURL string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// UserProfile carries display attributes owned by the profile service.
type UserProfile struct {
	UserID    int    `db:"user_id" json:"user_id"`
	Bio       string `db:"bio" json:"bio"`
	Interests string `db:"interests" json:"interests"`
}
