package triage

import "sentrybot/internal/domain"

// DefaultLanguage is the fallback when a caller requests an unsupported
// language tag. Lists are never mixed-language: an unsupported tag falls back
// to the default language wholly.
const DefaultLanguage = "en"

var baseRecommendations = map[string]map[domain.RiskTier][]string{
	"en": {
		domain.TierHigh: {
			"Do not interact with this content",
			"Report to your security team immediately",
			"Block the source if possible",
		},
		domain.TierMedium: {
			"Proceed with extreme caution",
			"Verify through independent channels",
			"Do not provide sensitive information",
		},
		domain.TierLow: {
			"Exercise standard security practices",
			"Verify sender identity if unsure",
			"Monitor for additional suspicious activity",
		},
		domain.TierMinimal: {
			"Content appears legitimate based on available data",
			"Maintain general security awareness",
			"Report if behavior changes",
		},
	},
	"hi": {
		domain.TierHigh: {
			"इस सामग्री के साथ इंटरैक्ट न करें",
			"तुरंत अपनी सुरक्षा टीम को रिपोर्ट करें",
			"यदि संभव हो तो स्रोत को ब्लॉक करें",
		},
		domain.TierMedium: {
			"अत्यधिक सावधानी के साथ आगे बढ़ें",
			"स्वतंत्र चैनलों के माध्यम से सत्यापित करें",
			"संवेदनशील जानकारी प्रदान न करें",
		},
		domain.TierLow: {
			"मानक सुरक्षा प्रथाओं का पालन करें",
			"अनिश्चित होने पर प्रेषक की पहचान सत्यापित करें",
			"अतिरिक्त संदिग्ध गतिविधि की निगरानी करें",
		},
		domain.TierMinimal: {
			"उपलब्ध डेटा के आधार पर सामग्री वैध प्रतीत होती है",
			"सामान्य सुरक्षा जागरूकता बनाए रखें",
			"व्यवहार बदलने पर रिपोर्ट करें",
		},
	},
}

var phoneAppendix = map[string]string{
	"en": "Do not return the call or provide callback information",
	"hi": "कॉल वापस न करें या कॉलबैक जानकारी प्रदान न करें",
}

var emailAppendix = map[string]string{
	"en": "Do not click links or download attachments",
	"hi": "लिंक पर क्लिक न करें या अटैचमेंट डाउनलोड न करें",
}

// Recommend maps a risk tier and content type to an ordered list of
// user-facing actions in the requested language. Content-type appendices are
// added for phone and email content at high or medium risk.
func Recommend(tier domain.RiskTier, contentType domain.ContentType, language string) []string {
	lang := normalizeLanguage(language)

	base, ok := baseRecommendations[lang][tier]
	if !ok {
		return nil
	}
	recommendations := make([]string, len(base))
	copy(recommendations, base)

	if tier == domain.TierHigh || tier == domain.TierMedium {
		switch contentType {
		case domain.ContentPhone:
			recommendations = append(recommendations, phoneAppendix[lang])
		case domain.ContentEmail:
			recommendations = append(recommendations, emailAppendix[lang])
		}
	}

	return recommendations
}

func normalizeLanguage(language string) string {
	if _, ok := baseRecommendations[language]; ok {
		return language
	}
	return DefaultLanguage
}
