package model

import "time"

// GroupChat is one uploaded chat export. It is the root of ownership:
// participants, messages and quizzes all hang off a group chat, and the
// uploading user owns the whole tree.
type GroupChat struct {
	ID         uint64    // group_chats.id
	UserID     uint64    // group_chats.user_id (uploader)
	Name       string    // group_chats.name
	FileName   string    // group_chats.file_name
	UploadedAt time.Time // group_chats.uploaded_at
}

// Participant is a chat member discovered while parsing the export.
type Participant struct {
	ID          uint64 // participants.id
	GroupChatID uint64 // participants.group_chat_id
	Name        string // participants.name
}

// Message is a single chat line attributed to a participant.
type Message struct {
	ID            uint64    // messages.id
	GroupChatID   uint64    // messages.group_chat_id
	ParticipantID uint64    // messages.participant_id
	Content       string    // messages.content
	SentAt        time.Time // messages.sent_at
}
