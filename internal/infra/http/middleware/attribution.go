package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

// Nomes fixos dos cookies. O prefixo evita colisão com cookies da
// plataforma de analytics na mesma origem.
const (
	VisitorCookieName = "lm_vid"
	UTMCookiePrefix   = "lm_utm_"
)

var utmKeys = []string{"source", "medium", "campaign", "term", "content"}

type ctxKey int

const (
	ctxVisitorID ctxKey = iota
	ctxAttribution
	ctxClickIDs
)

type AttributionConfig struct {
	CookieDomain string
	TTL          time.Duration
}

// Attribution é o Visitor Identity Store: por requisição, sem estado
// compartilhado entre requisições além dos próprios cookies.
//
// Regras:
//   - cookie de visitante ausente -> emite UUID v4 novo com TTL de 30 dias
//   - QUALQUER cookie UTM presente -> pacote já capturado, NADA é
//     sobrescrito (first-touch é permanente pela vida do cookie)
//   - nenhum cookie UTM + query com utm_* -> grava os presentes
//   - gclid/gbraid/wbraid só entram no contexto da requisição -
//     NUNCA em cookie nem storage do dispositivo (decisão de
//     privacidade, não esquecimento)
func Attribution(cfg AttributionConfig) func(http.Handler) http.Handler {
	maxAge := int(cfg.TTL.Seconds())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// 1. Identidade do visitante
			visitorID := ""
			if c, err := r.Cookie(VisitorCookieName); err == nil && c.Value != "" {
				visitorID = c.Value
			} else {
				visitor := entity.NewVisitor()
				visitorID = visitor.ID
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookieName,
					Value:    visitorID,
					Path:     "/",
					Domain:   cfg.CookieDomain,
					MaxAge:   maxAge,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx = context.WithValue(ctx, ctxVisitorID, visitorID)

			// 2. Pacote UTM first-touch
			attr := readUTMCookies(r)
			if attr.Empty() {
				attr = utmFromQuery(r)
				writeUTMCookies(w, attr, cfg.CookieDomain, maxAge)
			}
			// Landing page e referrer acompanham a requisição atual;
			// só viram registro durável quando o lead é criado.
			attr.LandingPage = r.URL.Path
			attr.Referrer = r.Referer()
			ctx = context.WithValue(ctx, ctxAttribution, attr)

			// 3. Click ids: escopo de sessão, em memória apenas
			q := r.URL.Query()
			clicks := entity.ClickIDs{
				GCLID:  q.Get("gclid"),
				GBRAID: q.Get("gbraid"),
				WBRAID: q.Get("wbraid"),
			}
			ctx = context.WithValue(ctx, ctxClickIDs, clicks)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func readUTMCookies(r *http.Request) entity.Attribution {
	get := func(key string) string {
		if c, err := r.Cookie(UTMCookiePrefix + key); err == nil {
			return c.Value
		}
		return ""
	}

	return entity.Attribution{
		Source:   get("source"),
		Medium:   get("medium"),
		Campaign: get("campaign"),
		Term:     get("term"),
		Content:  get("content"),
	}
}

func utmFromQuery(r *http.Request) entity.Attribution {
	q := r.URL.Query()
	return entity.Attribution{
		Source:   q.Get("utm_source"),
		Medium:   q.Get("utm_medium"),
		Campaign: q.Get("utm_campaign"),
		Term:     q.Get("utm_term"),
		Content:  q.Get("utm_content"),
	}
}

func writeUTMCookies(w http.ResponseWriter, attr entity.Attribution, domain string, maxAge int) {
	values := map[string]string{
		"source":   attr.Source,
		"medium":   attr.Medium,
		"campaign": attr.Campaign,
		"term":     attr.Term,
		"content":  attr.Content,
	}

	for _, key := range utmKeys {
		if values[key] == "" {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:     UTMCookiePrefix + key,
			Value:    values[key],
			Path:     "/",
			Domain:   domain,
			MaxAge:   maxAge,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func VisitorIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxVisitorID).(string); ok {
		return v
	}
	return ""
}

func AttributionFrom(ctx context.Context) entity.Attribution {
	if a, ok := ctx.Value(ctxAttribution).(entity.Attribution); ok {
		return a
	}
	return entity.Attribution{}
}

func ClickIDsFrom(ctx context.Context) entity.ClickIDs {
	if c, ok := ctx.Value(ctxClickIDs).(entity.ClickIDs); ok {
		return c
	}
	return entity.ClickIDs{}
}
