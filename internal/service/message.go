package service

import (
	"errors"
	"strings"
	"time"

	"messagely/internal/models"

	"gorm.io/gorm"
)

// MessageService 封装定向消息的创建、查询与已读状态流转。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// BasicProfile 消息里附带的对端基础档案。
type BasicProfile struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// MessageDetail 单条消息的完整视图，含收发双方档案。
type MessageDetail struct {
	ID       uint         `json:"id"`
	Body     string       `json:"body"`
	SentAt   time.Time    `json:"sent_at"`
	ReadAt   *time.Time   `json:"read_at"`
	FromUser BasicProfile `json:"from_user"`
	ToUser   BasicProfile `json:"to_user"`
}

// SentMessage 发出某条消息的视图，附收件人档案。
type SentMessage struct {
	ID     uint         `json:"id"`
	Body   string       `json:"body"`
	SentAt time.Time    `json:"sent_at"`
	ReadAt *time.Time   `json:"read_at"`
	ToUser BasicProfile `json:"to_user"`
}

// ReceivedMessage 收到某条消息的视图，附发件人档案。
type ReceivedMessage struct {
	ID       uint         `json:"id"`
	Body     string       `json:"body"`
	SentAt   time.Time    `json:"sent_at"`
	ReadAt   *time.Time   `json:"read_at"`
	FromUser BasicProfile `json:"from_user"`
}

// Create 新建一条定向消息。body 为空或收件人缺失返回 ErrInvalidInput，
// 收件人账号不存在返回 ErrNotFound。发给自己是允许的。
func (s *MessageService) Create(fromUsername, toUsername, body string) (*models.Message, error) {
	toUsername = strings.TrimSpace(toUsername)
	if toUsername == "" || strings.TrimSpace(body) == "" {
		return nil, ErrInvalidInput
	}
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", toUsername).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	msg := models.Message{
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Body:         body,
		SentAt:       time.Now(),
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// Get 返回单条消息及收发双方的基础档案，消息不存在返回 ErrNotFound。
func (s *MessageService) Get(id uint) (*MessageDetail, error) {
	var msg models.Message
	if err := s.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	profiles, err := s.resolveProfiles([]string{msg.FromUsername, msg.ToUsername})
	if err != nil {
		return nil, err
	}
	return &MessageDetail{
		ID:       msg.ID,
		Body:     msg.Body,
		SentAt:   msg.SentAt,
		ReadAt:   msg.ReadAt,
		FromUser: profiles[msg.FromUsername],
		ToUser:   profiles[msg.ToUsername],
	}, nil
}

// MarkRead 把消息标记为已读。只有收件人可以调用，其余身份返回 ErrForbidden。
// read_at 首次写入后不再变化：依赖带条件的原子 UPDATE，并发调用最多只有
// 一次真正的状态流转，其余调用拿到已有的 read_at，视为幂等的空操作。
func (s *MessageService) MarkRead(id uint, actingUsername string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if msg.ToUsername != actingUsername {
		return nil, ErrForbidden
	}
	now := time.Now()
	res := s.db.Model(&models.Message{}).Where("id = ? AND read_at IS NULL", id).Update("read_at", &now)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		msg.ReadAt = &now
		return &msg, nil
	}
	// 已经读过，重新读取既有的 read_at。
	if err := s.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessagesFrom 返回该账号发出的全部消息，按 sent_at 升序，附各收件人档案。
// 账号不存在返回 ErrNotFound。
func (s *MessageService) MessagesFrom(username string) ([]SentMessage, error) {
	if err := s.ensureUser(username); err != nil {
		return nil, err
	}
	var msgs []models.Message
	if err := s.db.Where("from_username = ?", username).Order("sent_at asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(msgs))
	for _, m := range msgs {
		names = append(names, m.ToUsername)
	}
	profiles, err := s.resolveProfiles(names)
	if err != nil {
		return nil, err
	}
	out := make([]SentMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, SentMessage{ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt, ToUser: profiles[m.ToUsername]})
	}
	return out, nil
}

// MessagesTo 返回发给该账号的全部消息，按 sent_at 升序，附各发件人档案。
// 账号不存在返回 ErrNotFound。
func (s *MessageService) MessagesTo(username string) ([]ReceivedMessage, error) {
	if err := s.ensureUser(username); err != nil {
		return nil, err
	}
	var msgs []models.Message
	if err := s.db.Where("to_username = ?", username).Order("sent_at asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	names := make([]string, 0, len(msgs))
	for _, m := range msgs {
		names = append(names, m.FromUsername)
	}
	profiles, err := s.resolveProfiles(names)
	if err != nil {
		return nil, err
	}
	out := make([]ReceivedMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ReceivedMessage{ID: m.ID, Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt, FromUser: profiles[m.FromUsername]})
	}
	return out, nil
}

func (s *MessageService) ensureUser(username string) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// resolveProfiles 批量获取消息涉及的账号基础档案。
func (s *MessageService) resolveProfiles(usernames []string) (map[string]BasicProfile, error) {
	seen := make(map[string]struct{}, len(usernames))
	unique := make([]string, 0, len(usernames))
	for _, name := range usernames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	profiles := make(map[string]BasicProfile, len(unique))
	if len(unique) > 0 {
		var users []models.User
		if err := s.db.Select("username", "first_name", "last_name", "phone").Where("username IN ?", unique).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			profiles[u.Username] = BasicProfile{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone}
		}
	}
	return profiles, nil
}
