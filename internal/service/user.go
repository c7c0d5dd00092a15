package service

import (
	"errors"
	"time"

	"messagely/internal/auth"
	"messagely/internal/models"

	"gorm.io/gorm"
)

// UserService 封装账号注册、凭证校验与档案查询。
type UserService struct {
	db     *gorm.DB
	hasher *auth.Hasher
	issuer *auth.TokenIssuer
}

func NewUserService(db *gorm.DB, hasher *auth.Hasher, issuer *auth.TokenIssuer) *UserService {
	return &UserService{db: db, hasher: hasher, issuer: issuer}
}

// RegisterInput 注册所需的全部字段。
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UserSummary 列表接口输出的基础信息。
type UserSummary struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Profile 单个账号的完整档案，不含密码哈希。
type Profile struct {
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// Register 创建新账号并签发会话令牌。注册即视为一次成功登录，
// 会同时写入 last_login_at。用户名唯一性交给存储层的主键约束保证：
// 并发注册同名账号时也只会有一个成功，落败方拿到 ErrUsernameTaken。
func (s *UserService) Register(in RegisterInput) (*Profile, string, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", err
	}
	now := time.Now()
	user := models.User{
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		JoinedAt:     now,
		LastLoginAt:  &now,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", err
	}
	token, err := s.issuer.Issue(user.Username)
	if err != nil {
		return nil, "", err
	}
	return profileOf(user), token, nil
}

// Authenticate 校验用户名密码，只返回是否匹配。用户名不存在时也会
// 对固定摘要比较一次，保证失败路径耗时一致。
func (s *UserService) Authenticate(username, password string) bool {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return s.hasher.VerifyDummy(password)
	}
	return s.hasher.Verify(user.PasswordHash, password)
}

// Login 校验凭证并签发令牌，成功时更新 last_login_at。
// 无论用户不存在还是密码错误都返回同一个 ErrInvalidCredentials。
func (s *UserService) Login(username, password string) (string, error) {
	if !s.Authenticate(username, password) {
		return "", ErrInvalidCredentials
	}
	if err := s.UpdateLoginTimestamp(username); err != nil {
		return "", err
	}
	return s.issuer.Issue(username)
}

// UpdateLoginTimestamp 把 last_login_at 设置为当前时间。
func (s *UserService) UpdateLoginTimestamp(username string) error {
	now := time.Now()
	res := s.db.Model(&models.User{}).Where("username = ?", username).Update("last_login_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get 返回账号档案，不存在时返回 ErrNotFound。
func (s *UserService) Get(username string) (*Profile, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profileOf(user), nil
}

// List 按用户名升序返回全部账号的基础信息。
func (s *UserService) List() ([]UserSummary, error) {
	var users []models.User
	if err := s.db.Select("username", "first_name", "last_name").Order("username asc").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName})
	}
	return out, nil
}

func profileOf(u models.User) *Profile {
	return &Profile{
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		JoinedAt:    u.JoinedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
