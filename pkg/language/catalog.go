package language

import (
	"sort"
	"strings"
)

// Info describes a language the companion can converse in.
type Info struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Greeting string `json:"greeting"`
}

var catalog = map[string]Info{
	"en": {"en", "English", "Hello! I'm here to listen and support you. How are you feeling today?"},
	"de": {"de", "German", "Hallo! Ich bin hier, um zuzuhören und dich zu unterstützen. Wie fühlst du dich heute?"},
	"es": {"es", "Spanish", "¡Hola! Estoy aquí para escuchar y apoyarte. ¿Cómo te sientes hoy?"},
	"fr": {"fr", "French", "Bonjour ! Je suis là pour vous écouter et vous soutenir. Comment vous sentez-vous aujourd'hui ?"},
	"it": {"it", "Italian", "Ciao! Sono qui per ascoltarti e supportarti. Come ti senti oggi?"},
	"pt": {"pt", "Portuguese", "Olá! Estou aqui para ouvir e apoiar você. Como você está se sentindo hoje?"},
	"ru": {"ru", "Russian", "Привет! Я здесь, чтобы слушать и поддерживать вас. Как вы себя чувствуете сегодня?"},
	"ja": {"ja", "Japanese", "こんにちは！私はあなたの話を聞き、サポートするためにここにいます。今日はどんな気分ですか？"},
	"ko": {"ko", "Korean", "안녕하세요! 저는 당신의 이야기를 듣고 지원하기 위해 여기 있습니다. 오늘 기분이 어떠세요?"},
	"zh": {"zh", "Chinese", "你好！我在这里倾听并支持你。你今天感觉怎么样？"},
	"ar": {"ar", "Arabic", "مرحبا! أنا هنا للاستماع ودعمك. كيف تشعر اليوم؟"},
	"hi": {"hi", "Hindi", "नमस्ते! मैं यहाँ आपकी बात सुनने और आपका साथ देने के लिए हूँ। आज आप कैसा महसूस कर रहे हैं?"},
	"nl": {"nl", "Dutch", "Hallo! Ik ben hier om te luisteren en je te steunen. Hoe voel je je vandaag?"},
	"sv": {"sv", "Swedish", "Hej! Jag är här för att lyssna och stödja dig. Hur mår du idag?"},
	"no": {"no", "Norwegian", "Hei! Jeg er her for å lytte og støtte deg. Hvordan har du det i dag?"},
	"da": {"da", "Danish", "Hej! Jeg er her for at lytte og støtte dig. Hvordan har du det i dag?"},
	"fi": {"fi", "Finnish", "Hei! Olen täällä kuuntelemassa ja tukemassa sinua. Miltä sinusta tuntuu tänään?"},
	"pl": {"pl", "Polish", "Cześć! Jestem tutaj, żeby słuchać i wspierać cię. Jak się dziś czujesz?"},
	"tr": {"tr", "Turkish", "Merhaba! Seni dinlemek ve desteklemek için buradayım. Bugün nasıl hissediyorsun?"},
	"he": {"he", "Hebrew", "שלום! אני כאן כדי להקשיב ולתמוך בך. איך אתה מרגיש היום?"},
}

var locales = map[string]string{
	"en": "en-US", "de": "de-DE", "es": "es-ES", "fr": "fr-FR", "it": "it-IT",
	"pt": "pt-BR", "ru": "ru-RU", "ja": "ja-JP", "ko": "ko-KR", "zh": "zh-CN",
	"ar": "ar-SA", "hi": "hi-IN", "nl": "nl-NL", "sv": "sv-SE", "no": "nb-NO",
	"da": "da-DK", "fi": "fi-FI", "pl": "pl-PL", "tr": "tr-TR", "he": "he-IL",
}

// Locale returns the default BCP-47 locale for a language code, or the code
// itself when no region is known.
func Locale(code string) string {
	if l, ok := locales[Normalize(code)]; ok {
		return l
	}
	return code
}

// aliases maps detector codes onto catalog codes.
var aliases = map[string]string{
	"nb": "no",
	"nn": "no",
	"iw": "he",
}

// DefaultSupported returns the built-in language codes, sorted.
func DefaultSupported() []string {
	codes := make([]string, 0, len(catalog))
	for code := range catalog {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the catalog entry for code.
func Lookup(code string) (Info, bool) {
	info, ok := catalog[Normalize(code)]
	return info, ok
}

// Normalize folds aliases onto their canonical code.
func Normalize(code string) string {
	if c, ok := aliases[code]; ok {
		return c
	}
	return code
}

// CodeForName returns the code of the catalog language with the given English
// name, matched case-insensitively.
func CodeForName(name string) (string, bool) {
	for code, info := range catalog {
		if strings.EqualFold(info.Name, name) {
			return code, true
		}
	}
	return "", false
}
