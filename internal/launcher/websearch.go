package launcher

import (
	"net/url"
	"strings"
)

var engines = map[string]string{
	"google":     "https://www.google.com/search?q={keyword}",
	"bing":       "https://www.bing.com/search?q={keyword}",
	"duckduckgo": "https://duckduckgo.com/?q={keyword}",
	"yahoo":      "https://search.yahoo.com/search?p={keyword}",
	"baidu":      "https://www.baidu.com/s?wd={keyword}",
	"yandex":     "https://yandex.com/search/?text={keyword}",
	"ask":        "https://www.ask.com/web?q={keyword}",
	"ecosia":     "https://www.ecosia.org/search?q={keyword}",
	"qwant":      "https://www.qwant.com/?q={keyword}",
	"startpage":  "https://www.startpage.com/sp/search?q={keyword}",
	"plain":      "{keyword}",
}

// EngineTemplate maps a known engine name to its URL template. Anything
// else is taken as a template already.
func EngineTemplate(engine string) string {
	if t, ok := engines[strings.ToLower(engine)]; ok {
		return t
	}
	if engine == "" {
		return engines["duckduckgo"]
	}
	return engine
}

// SearchURL fills template with query. A query that already is a URL is
// returned unchanged.
func SearchURL(template, query string) string {
	query = strings.TrimSpace(query)
	if u, err := url.Parse(query); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return query
	}
	return strings.ReplaceAll(template, "{keyword}", url.QueryEscape(query))
}
