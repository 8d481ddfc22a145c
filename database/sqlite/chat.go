package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

const chatTypeDirect = "direct"

type chatRow struct {
	ID      string    `db:"id"`
	Type    string    `db:"type"`
	Name    string    `db:"name"`
	Created time.Time `db:"created"`
}

func (r chatRow) toModel() model.Chat {
	return model.Chat{ID: r.ID, Type: r.Type, Name: r.Name, Created: r.Created}
}

type messageRow struct {
	ID          string    `db:"id"`
	ChatID      string    `db:"chatid"`
	SenderID    string    `db:"senderid"`
	Content     string    `db:"content"`
	MessageType string    `db:"messagetype"`
	Created     time.Time `db:"created"`
}

func (r messageRow) toModel() model.Message {
	return model.Message{
		ID:          r.ID,
		ChatID:      r.ChatID,
		SenderID:    r.SenderID,
		Content:     r.Content,
		MessageType: r.MessageType,
		Created:     r.Created,
	}
}

// FindDirectChat returns the direct chat between two users.
func (s *SqliteRepo) FindDirectChat(ctx context.Context, userA, userB string) (*model.Chat, error) {
	var row chatRow
	if err := s.dbReadHandle.GetContext(ctx, &row, `SELECT c.id, c.type, c.name, c.created FROM chats c
		JOIN chat_participants a ON a.chatid=c.id AND a.userid=?
		JOIN chat_participants b ON b.chatid=c.id AND b.userid=?
		WHERE c.type=? LIMIT 1`, userA, userB, chatTypeDirect); err != nil {
		return nil, mapError(err)
	}
	c := row.toModel()
	return &c, nil
}

// CreateDirectChat creates a direct chat with both users as participants.
func (s *SqliteRepo) CreateDirectChat(ctx context.Context, userA, userB string) (*model.Chat, error) {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	chat := model.Chat{
		ID:      idhash.NewRandomID(),
		Type:    chatTypeDirect,
		Created: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO chats (id, type, name, created) VALUES (?, ?, ?, ?)`,
		chat.ID, chat.Type, "", chat.Created); err != nil {
		return nil, err
	}
	for _, userID := range []string{userA, userB} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO chat_participants (chatid, userid) VALUES (?, ?)`,
			chat.ID, userID); err != nil {
			return nil, mapError(err)
		}
	}
	return &chat, tx.Commit()
}

// IsChatParticipant reports whether a user takes part in a chat.
func (s *SqliteRepo) IsChatParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var count int
	if err := s.dbReadHandle.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM chat_participants WHERE chatid=? AND userid=?`, chatID, userID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetChats returns the chats a user takes part in.
func (s *SqliteRepo) GetChats(ctx context.Context, userID string) ([]model.Chat, error) {
	var rows []chatRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows, `SELECT c.id, c.type, c.name, c.created FROM chats c
		JOIN chat_participants p ON p.chatid=c.id WHERE p.userid=? ORDER BY c.created DESC`, userID); err != nil {
		return nil, err
	}
	chats := make([]model.Chat, 0, len(rows))
	for _, r := range rows {
		chats = append(chats, r.toModel())
	}
	return chats, nil
}

// InsertMessage stores a chat message.
func (s *SqliteRepo) InsertMessage(ctx context.Context, m model.Message) (*model.Message, error) {
	m.ID = idhash.NewRandomID()
	m.Created = time.Now().UTC()
	if m.MessageType == "" {
		m.MessageType = "text"
	}
	if _, err := s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO messages (id, chatid, senderid, content, messagetype, created)
		VALUES (:id, :chatid, :senderid, :content, :messagetype, :created)`,
		messageRow{
			ID:          m.ID,
			ChatID:      m.ChatID,
			SenderID:    m.SenderID,
			Content:     m.Content,
			MessageType: m.MessageType,
			Created:     m.Created,
		}); err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// GetMessages returns the last limit messages of a chat, oldest first.
func (s *SqliteRepo) GetMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []messageRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows, `SELECT id, chatid, senderid, content, messagetype, created FROM messages
		WHERE chatid=? ORDER BY created DESC, rowid DESC LIMIT ?`, chatID, limit); err != nil {
		return nil, err
	}
	messages := make([]model.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		messages = append(messages, rows[i].toModel())
	}
	return messages, nil
}
