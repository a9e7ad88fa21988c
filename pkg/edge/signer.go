package edge

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// percentEncode applies the provider's RFC 3986 variant: spaces become
// %20 (not +), '*' becomes %2A, and '~' stays literal.
func percentEncode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	e = strings.ReplaceAll(e, "%7E", "~")
	return e
}

// canonicalize sorts parameter keys lexicographically and joins the
// percent-encoded pairs with '&'.
func canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	return strings.Join(pairs, "&")
}

// Sign computes the base64 HMAC-SHA1 signature over the canonicalized
// parameters. The string-to-sign is
// "GET&" + encode("/") + "&" + encode(canonicalizedQueryString)
// and the HMAC key is the secret with a trailing '&'.
func Sign(params map[string]string, secret string) string {
	stringToSign := "GET&" + percentEncode("/") + "&" + percentEncode(canonicalize(params))
	mac := hmac.New(sha1.New, []byte(secret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignedQuery signs the parameters and returns the full request query
// string with the signature appended as one more parameter.
func SignedQuery(params map[string]string, secret string) string {
	signature := Sign(params, secret)
	return canonicalize(params) + "&Signature=" + percentEncode(signature)
}
