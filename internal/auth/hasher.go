package auth

import "golang.org/x/crypto/bcrypt"

// Hasher 封装 bcrypt 的加盐哈希与校验，cost 在构造时固定。
type Hasher struct {
	cost  int
	dummy []byte
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// 用相同 cost 预生成一个哑摘要。用户名不存在时也照常比较一次，
	// 两条失败路径的耗时保持一致，避免通过响应时间推断用户是否存在。
	dummy, _ := bcrypt.GenerateFromPassword([]byte("messagely-no-such-user"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash 生成加盐摘要，同一明文每次调用得到不同结果。
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(b), err
}

// Verify 校验明文与摘要是否匹配，摘要格式非法时返回 false 而不是报错。
func (h *Hasher) Verify(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// VerifyDummy 对哑摘要做一次比较后直接返回 false，耗时与正常校验相当。
func (h *Hasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
