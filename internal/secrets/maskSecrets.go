package secrets

import (
	_ "embed"
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/checkmarxDev/audit-wrapper/pkg/maskedSecret"
)

const (
	base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="
	hexChars    = "1234567890abcdefABCDEF"
	maskToken   = "<masked>"
)

//go:embed regex_rules.json
var regexRules []byte

type entropy struct {
	Group int     `json:"group"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type Multiline struct {
	DetectLineGroup int `json:"detectLineGroup"`
}

type AllowRule struct {
	Description string `json:"description"`
	Regex       string `json:"regex"`
}

type SecretRule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Regex       string      `json:"regex"`
	Entropies   []entropy   `json:"entropies"`
	Multiline   Multiline   `json:"multiline"`
	AllowRules  []AllowRule `json:"allowRules"`
	SpecialMask string      `json:"specialMask"`
}

type SecretRules struct {
	Rules      []SecretRule `json:"rules"`
	AllowRules []AllowRule  `json:"allowRules"`
}

type secretRegexp struct {
	QueryName   string
	Regex       *regexp.Regexp
	Multiline   bool
	Entropies   []entropy
	AllowRules  []*regexp.Regexp
	SpecialMask *regexp.Regexp
}

var (
	loadOnce     sync.Once
	loadedRules  []secretRegexp
	loadedAllows []*regexp.Regexp
	loadErr      error
)

func rules() ([]secretRegexp, []*regexp.Regexp, error) {
	loadOnce.Do(func() {
		loadedRules, loadedAllows, loadErr = loadRegexps(regexRules)
	})
	return loadedRules, loadedAllows, loadErr
}

func loadRegexps(raw []byte) ([]secretRegexp, []*regexp.Regexp, error) {
	var secretRules SecretRules
	if err := json.Unmarshal(raw, &secretRules); err != nil {
		return nil, nil, err
	}

	var regexes []secretRegexp
	for _, rule := range secretRules.Rules {
		regexCompiled, err := regexp.Compile(rule.Regex)
		if err != nil {
			return nil, nil, err
		}

		var specialMask *regexp.Regexp
		if rule.SpecialMask != "" {
			if specialMask, err = regexp.Compile(rule.SpecialMask); err != nil {
				return nil, nil, err
			}
		}

		regexes = append(regexes, secretRegexp{
			QueryName:   rule.Name,
			Regex:       regexCompiled,
			AllowRules:  compileAllowRules(rule.AllowRules),
			Multiline:   rule.Multiline.DetectLineGroup != 0,
			Entropies:   rule.Entropies,
			SpecialMask: specialMask,
		})
	}

	return regexes, compileAllowRules(secretRules.AllowRules), nil
}

func compileAllowRules(allowRules []AllowRule) []*regexp.Regexp {
	var compiled []*regexp.Regexp
	for _, rule := range allowRules {
		if re, err := regexp.Compile(rule.Regex); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

// getLineNumber returns the 1-based line holding index.
func getLineNumber(str string, index int) int {
	return strings.Count(str[:index], "\n") + 1
}

// checkEntropyInterval - verifies if a given token's entropy is within expected bounds
func checkEntropyInterval(entropy entropy, token string) bool {
	return insideInterval(entropy, calculateEntropy(token, base64Chars)) ||
		insideInterval(entropy, calculateEntropy(token, hexChars))
}

func insideInterval(entropy entropy, floatEntropy float64) bool {
	return floatEntropy >= entropy.Min && floatEntropy <= entropy.Max
}

// calculateEntropy - calculates the entropy of a string based on the Shannon formula
func calculateEntropy(token, charSet string) float64 {
	if token == "" {
		return 0
	}
	charMap := map[rune]float64{}
	for _, char := range token {
		if strings.ContainsRune(charSet, char) {
			charMap[char]++
		}
	}

	var freq float64
	length := float64(len(token))
	for _, count := range charMap {
		freq += count * math.Log2(count)
	}

	return math.Log2(length) - freq/length
}

func isAllowed(text string, allowRules ...[]*regexp.Regexp) bool {
	for _, group := range allowRules {
		for _, allowRule := range group {
			if allowRule.MatchString(text) {
				return true
			}
		}
	}
	return false
}

func passesEntropy(re secretRegexp, text string, submatch []int) bool {
	for _, e := range re.Entropies {
		start, end := 2*e.Group, 2*e.Group+1
		if end >= len(submatch) || submatch[start] < 0 {
			continue
		}
		if !checkEntropyInterval(e, text[submatch[start]:submatch[end]]) {
			return false
		}
	}
	return true
}

func mask(re secretRegexp, match string) (masked, secret string) {
	prefix := ""
	if re.SpecialMask != nil {
		if loc := re.SpecialMask.FindStringIndex(match); loc != nil && loc[0] == 0 {
			prefix = match[:loc[1]]
		}
	}
	return prefix + maskToken, match[len(prefix):]
}

func maskLine(line string, lineNumber int, re secretRegexp, allowRegexes []*regexp.Regexp) (string, []maskedSecret.MaskedSecret) {
	matches := re.Regex.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 || isAllowed(line, re.AllowRules, allowRegexes) {
		return line, nil
	}

	var found []maskedSecret.MaskedSecret
	var b strings.Builder
	last := 0
	for _, m := range matches {
		if !passesEntropy(re, line, m) {
			continue
		}
		masked, secret := mask(re, line[m[0]:m[1]])
		b.WriteString(line[last:m[0]])
		b.WriteString(masked)
		last = m[1]
		found = append(found, maskedSecret.MaskedSecret{Masked: masked, Secret: secret, Line: lineNumber})
	}
	b.WriteString(line[last:])
	return b.String(), found
}

func replaceMatches(content string, regexps []secretRegexp, allowRegexes []*regexp.Regexp) *maskedSecret.MaskedEntry {
	entry := &maskedSecret.MaskedEntry{}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var multilineRegexes []secretRegexp
	for _, re := range regexps {
		if re.Multiline {
			multilineRegexes = append(multilineRegexes, re)
			continue
		}
		for index, line := range lines {
			var found []maskedSecret.MaskedSecret
			lines[index], found = maskLine(line, index+1, re, allowRegexes)
			entry.MaskedSecrets = append(entry.MaskedSecrets, found...)
		}
	}

	result := strings.Join(lines, "\n")
	for _, re := range multilineRegexes {
		offset := 0
		for {
			loc := re.Regex.FindStringIndex(result[offset:])
			if loc == nil {
				break
			}
			start, end := offset+loc[0], offset+loc[1]
			matchString := result[start:end]
			if isAllowed(matchString, re.AllowRules, allowRegexes) {
				offset = end
				continue
			}
			masked, secret := mask(re, matchString)
			entry.MaskedSecrets = append(entry.MaskedSecrets, maskedSecret.MaskedSecret{
				Masked: masked,
				Secret: secret,
				Line:   getLineNumber(result, start),
			})
			result = result[:start] + masked + result[end:]
			offset = start + len(masked)
		}
	}

	entry.MaskedFile = result
	return entry
}

// MaskSecrets replaces every detected secret in fileContent with <masked>.
func MaskSecrets(fileContent string) (*maskedSecret.MaskedEntry, error) {
	rs, allowRs, err := rules()
	if err != nil {
		return nil, err
	}
	return replaceMatches(fileContent, rs, allowRs), nil
}
