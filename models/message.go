package models

import "time"

type MessageType string

const (
	MessageText      MessageType = "text"
	MessageImage     MessageType = "image"
	MessageBookShare MessageType = "book_share"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageBookShare:
		return true
	}
	return false
}

type Message struct {
	ID          string       `json:"id" db:"id"`
	CommunityID string       `json:"communityId" db:"community_id"`
	SenderID    string       `json:"senderId" db:"sender_id"`
	Sender      *UserRef     `json:"sender,omitempty"`
	Content     string       `json:"content" db:"content"`
	Type        MessageType  `json:"messageType" db:"message_type"`
	Attachments []Attachment `json:"attachments"`
	Replies     []Reply      `json:"replies"`
	Reactions   []Reaction   `json:"reactions"`
	IsEdited    bool         `json:"isEdited" db:"is_edited"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}

type Attachment struct {
	Type   string `json:"type"`
	URL    string `json:"url,omitempty"`
	BookID string `json:"bookId,omitempty"`
}

type Reply struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	User      *UserRef  `json:"user,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Reaction struct {
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

type MessageRequest struct {
	Content     string       `json:"content"`
	Type        MessageType  `json:"messageType"`
	Attachments []Attachment `json:"attachments"`
}

type MessagePage struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}
