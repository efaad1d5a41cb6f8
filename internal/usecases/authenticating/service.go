package authenticating

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/internal/config"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator define a interface de autenticação consumida pelos handlers e
// middlewares.
type Authenticator interface {
	// LoginUser valida as credenciais e devolve um token JWT de sessão
	LoginUser(username, password string) (string, error)
	// ValidateToken verifica assinatura e validade de um token
	ValidateToken(tokenString string) (*domain.Claims, error)
	// UserByUsername devolve o perfil de um usuário fixo, sem a senha
	UserByUsername(username string) (*domain.User, error)
}

// Service autentica contra o conjunto fixo de usuários definido em
// configuração: um gestor por segmento e o proprietário. As senhas chegam em
// claro pela configuração e são convertidas para hash bcrypt na construção.
type Service struct {
	cfg   *config.Config
	users map[string]*domain.User
}

func NewService(cfg *config.Config) (Authenticator, error) {
	seeds := []struct {
		username string
		name     string
		password string
		role     domain.Role
		segment  domain.Segment
	}{
		{"conv", "Gestor Conveniências", cfg.Auth.ConvPassword, domain.RoleManager, domain.SegmentConveniences},
		{"peti", "Gestor Petiscarias", cfg.Auth.PetiPassword, domain.RoleManager, domain.SegmentSnackBars},
		{"disk", "Gestor Disk Chopp", cfg.Auth.DiskPassword, domain.RoleManager, domain.SegmentDelivery},
		{"dono", "Proprietário", cfg.Auth.OwnerPassword, domain.RoleOwner, ""},
	}

	users := make(map[string]*domain.User, len(seeds))
	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("erro ao preparar senha do usuário %s: %w", seed.username, err)
		}
		users[seed.username] = &domain.User{
			Username:     seed.username,
			Name:         seed.name,
			PasswordHash: string(hash),
			Role:         seed.role,
			Segment:      seed.segment,
		}
	}

	return &Service{cfg: cfg, users: users}, nil
}

func (s *Service) LoginUser(username, password string) (string, error) {
	// Validação de entrada
	if username == "" || password == "" {
		return "", NewAuthError(ErrMissingRequiredData, apiErrors.ErrMissingRequiredData, "Usuário e senha são obrigatórios")
	}

	user, ok := s.users[username]
	if !ok {
		return "", NewAuthError(ErrUserNotFound, apiErrors.ErrUserNotFound, "Usuário não encontrado")
	}

	// Verificar senha
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", NewUserAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, user.Username, "Senha incorreta")
	}

	token, err := generateJWT(user, s.cfg.SecretKey, s.cfg.Auth.TokenTTLHours)
	if err != nil {
		return "", NewAuthError(err, apiErrors.ErrInternalServer, "Erro ao gerar token de autenticação")
	}

	logrus.WithField("username", user.Username).Info("Usuário autenticado")
	return token, nil
}

func (s *Service) UserByUsername(username string) (*domain.User, error) {
	user, ok := s.users[username]
	if !ok {
		return nil, NewAuthError(ErrUserNotFound, apiErrors.ErrUserNotFound, "Usuário não encontrado")
	}

	profile := *user
	profile.PasswordHash = ""
	return &profile, nil
}

func generateJWT(user *domain.User, secretKey string, ttlHours int) (string, error) {
	if ttlHours <= 0 {
		ttlHours = 24
	}

	claims := domain.Claims{
		Username:    user.Username,
		UserName:    user.Name,
		UserRole:    user.Role,
		UserSegment: user.Segment,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(ttlHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

func (s *Service) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewAuthError(ErrExpiredToken, apiErrors.ErrExpiredToken, "")
		}
		return nil, err
	}

	if claims, ok := token.Claims.(*domain.Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
