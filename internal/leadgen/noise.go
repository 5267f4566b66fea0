package leadgen

import "strings"

// noiseDomains are well-known social/marketplace/platform/CDN/dev hosts
// excluded from search results and site-fetch candidates (spec.md §4.3
// step 6, GLOSSARY "Noise domain").
var noiseDomains = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com", "linkedin.com",
	"youtube.com", "tiktok.com", "pinterest.com", "reddit.com", "tumblr.com",
	"snapchat.com", "whatsapp.com", "telegram.org", "discord.com",
	"amazon.com", "amazon.nl", "amazon.de", "ebay.com", "ebay.nl", "bol.com",
	"marktplaats.nl", "etsy.com", "aliexpress.com", "wish.com",
	"indeed.com", "indeed.nl", "glassdoor.com", "monster.com", "monsterboard.nl",
	"linkedin.jobs", "stepstone.de", "stepstone.nl", "jobbird.com", "nationalevacaturebank.nl",
	"cloudflare.com", "cloudfront.net", "akamaized.net", "akamai.net", "fastly.net",
	"googleusercontent.com", "googleapis.com", "gstatic.com", "google.com",
	"bing.com", "duckduckgo.com", "yahoo.com", "baidu.com", "yandex.com",
	"github.com", "gitlab.com", "bitbucket.org", "npmjs.com", "stackoverflow.com",
	"wordpress.com", "wordpress.org", "wix.com", "squarespace.com", "shopify.com",
	"medium.com", "blogspot.com", "wikipedia.org", "wikimedia.org",
	"apple.com", "microsoft.com", "adobe.com", "paypal.com", "stripe.com",
	"vimeo.com", "dailymotion.com", "soundcloud.com", "spotify.com",
	"trustpilot.com", "kvk.nl", "glassdoor.nl", "yelp.com", "booking.com",
}

var noiseSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(noiseDomains))
	for _, d := range noiseDomains {
		m[d] = struct{}{}
	}
	return m
}()

// validTLDs are the suffixes a candidate URL's domain must end with
// (spec.md §4.2 step 4).
var validTLDs = []string{".nl", ".be", ".de", ".com", ".eu", ".net", ".org", ".biz", ".info"}

// isNoiseDomain reports whether domain (already normalized) is a known
// noise host — exact match or suffix match after a dot.
func isNoiseDomain(domain string) bool {
	if _, ok := noiseSet[domain]; ok {
		return true
	}
	for noise := range noiseSet {
		if strings.HasSuffix(domain, "."+noise) {
			return true
		}
	}
	return false
}

// hasValidTLD reports whether domain ends in one of the recognized TLDs.
func hasValidTLD(domain string) bool {
	for _, tld := range validTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// searchEngineHosts are dropped from search results since they are the
// engine's own redirect/asset hosts, not candidate companies.
var searchEngineHosts = map[string]struct{}{
	"duckduckgo.com":      {},
	"html.duckduckgo.com": {},
	"links.duckduckgo.com": {},
}

func isSearchEngineHost(domain string) bool {
	_, ok := searchEngineHosts[domain]
	return ok
}
