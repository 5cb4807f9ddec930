package password

import (
	"errors"

	"social-system/pkg/apperr"

	"golang.org/x/crypto/bcrypt"
)

// Hash 生成 bcrypt 哈希；超过 72 字节的密码视为参数错误
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.ErrInvalidArgument.Withf("password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify 校验密码，哈希格式错误按不匹配处理
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
