package model

// User is a registered account holder.
type User struct {
	Base

	GithubUsername string `json:"github_username" gorm:"uniqueIndex"`
	Email          string `json:"email" gorm:"not null"`
}
