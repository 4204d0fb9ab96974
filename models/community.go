package models

import "time"

type Community struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	CreatedBy   string    `json:"createdBy" db:"created_by"`
	Creator     *UserRef  `json:"creator,omitempty"`
	Members     []UserRef `json:"members"`
	Moderators  []UserRef `json:"moderators"`
	IsPublic    bool      `json:"isPublic" db:"is_public"`
	MaxMembers  int       `json:"maxMembers" db:"max_members"`
	Rules       []string  `json:"rules"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

func (c Community) MemberCount() int { return len(c.Members) }

func (c Community) IsFull() bool { return len(c.Members) >= c.MaxMembers }

// HasMember reports whether userID is in the member list.
func (c Community) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

type CommunityRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	IsPublic    *bool    `json:"isPublic"`
	MaxMembers  int      `json:"maxMembers"`
	Rules       []string `json:"rules"`
	Tags        []string `json:"tags"`
}

type CommunityFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

type CommunityPage struct {
	Communities []Community `json:"communities"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	Limit       int         `json:"limit"`
}
