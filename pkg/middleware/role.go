package middleware

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/pkg/apiErrors"
)

// claimsFromRequest recupera as claims colocadas no contexto pelo AuthMiddleware.
func claimsFromRequest(r *http.Request) (*domain.Claims, bool) {
	claims, ok := r.Context().Value(ContextKeyUser).(*domain.Claims)
	return claims, ok
}

// segmentFromRequest lê o parâmetro :segment da rota.
func segmentFromRequest(r *http.Request) (domain.Segment, error) {
	params := httprouter.ParamsFromContext(r.Context())
	return domain.ParseSegment(params.ByName("segment"))
}

// OwnerOnly restringe a rota ao proprietário.
func OwnerOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromRequest(r)
			if !ok {
				logrus.Warning("Tentativa de acesso sem autenticação")
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
				return
			}

			if claims.UserRole != domain.RoleOwner {
				logrus.Warningf("Acesso negado para usuário %s (role=%s)", claims.Username, claims.UserRole)
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Você não tem permissão para acessar este recurso", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SegmentRead exige que o usuário possa enxergar o segmento da rota:
// o gestor do segmento ou o proprietário.
func SegmentRead() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromRequest(r)
			if !ok {
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
				return
			}

			segment, err := segmentFromRequest(r)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Segmento inválido", nil)
				return
			}

			if !claims.CanAccessSegment(segment) {
				logrus.Warningf("Acesso negado ao segmento %s para usuário %s", segment, claims.Username)
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Você não tem acesso a este segmento", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SegmentWrite exige o gestor do próprio segmento. O proprietário enxerga
// todos os segmentos mas não lança nem edita faturamento.
func SegmentWrite() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromRequest(r)
			if !ok {
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
				return
			}

			segment, err := segmentFromRequest(r)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Segmento inválido", nil)
				return
			}

			if claims.UserRole != domain.RoleManager || claims.UserSegment != segment {
				logrus.Warningf("Escrita negada no segmento %s para usuário %s (role=%s)", segment, claims.Username, claims.UserRole)
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Apenas o gestor do segmento pode alterar lançamentos", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AllUsers exige apenas um usuário autenticado, qualquer papel.
func AllUsers() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := claimsFromRequest(r); !ok {
				apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
