package handlers

import (
	"fmt"
	"net/http"
)

// TagHandler serve o snippet que configura a tag da plataforma de
// ads nas páginas. allow_enhanced_conversions vai SÓ na config de
// ads: a config de analytics fica sem, e misturar as duas manda
// hash de PII pra onde não deve.
type TagHandler struct {
	AnalyticsTagID  string
	AdsConversionID string
}

func NewTagHandler(analyticsTagID, adsConversionID string) *TagHandler {
	return &TagHandler{
		AnalyticsTagID:  analyticsTagID,
		AdsConversionID: adsConversionID,
	}
}

const tagSnippet = `window.dataLayer = window.dataLayer || [];
function gtag(){dataLayer.push(arguments);}
gtag('js', new Date());

gtag('config', '%s');

gtag('config', 'AW-%s', {
  'allow_enhanced_conversions': true
});
`

func (h *TagHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	fmt.Fprintf(w, tagSnippet, h.AnalyticsTagID, h.AdsConversionID)
}
