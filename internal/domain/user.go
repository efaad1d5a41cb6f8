package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role define o papel de acesso de um usuário.
type Role string

const (
	// RoleManager enxerga e lança faturamento apenas no próprio segmento
	RoleManager Role = "manager"
	// RoleOwner enxerga todos os segmentos, somente leitura de lançamentos
	RoleOwner Role = "owner"
)

// User é um usuário fixo do sistema, definido por configuração.
// O proprietário não tem segmento próprio (Segment vazio).
type User struct {
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	PasswordHash string  `json:"-"`
	Role         Role    `json:"role"`
	Segment      Segment `json:"segment,omitempty"`
}

// CanAccessSegment informa se o usuário pode operar sobre o segmento.
func (u *User) CanAccessSegment(segment Segment) bool {
	if u.Role == RoleOwner {
		return true
	}
	return u.Segment == segment
}

type Claims struct {
	Username    string  `json:"username"`
	UserName    string  `json:"name"`
	UserRole    Role    `json:"role"`
	UserSegment Segment `json:"segment,omitempty"`
	jwt.RegisteredClaims
}

// CanAccessSegment espelha a regra de User para uso nos middlewares.
func (c *Claims) CanAccessSegment(segment Segment) bool {
	if c.UserRole == RoleOwner {
		return true
	}
	return c.UserSegment == segment
}
