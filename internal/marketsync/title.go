package marketsync

import (
	"strings"

	"github.com/oddsline/newsflow/internal/model"
)

// UngroupedPrefix keys singleton groups for contracts with no extractable
// event ticker.
const UngroupedPrefix = "__ungrouped__"

// unknownMarketTitle is used when a group has no contracts at all.
const unknownMarketTitle = "Unknown Market"

// ExtractEventTicker derives the grouping key for a flat contract: the
// eventTicker metadata field when present, otherwise the first two
// dash-separated parts of the contract id. Returns "" when neither yields a
// ticker; the caller then files the contract as a singleton group.
func ExtractEventTicker(c model.ContractData) string {
	if t := c.Metadata["eventTicker"]; t != "" {
		return t
	}
	parts := strings.Split(c.ContractID, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

// LongestCommonPrefix returns the character-level common prefix of all
// strings. Empty input yields ""; a single string is its own prefix.
func LongestCommonPrefix(strs []string) string {
	if len(strs) == 0 {
		return ""
	}
	prefix := strs[0]
	for _, s := range strs[1:] {
		n := 0
		for n < len(prefix) && n < len(s) && prefix[n] == s[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}

// DeriveMarketTitle produces the market title for a group of contracts.
//
// When every contract carries the same non-empty marketTitle metadata, that
// wins. Otherwise the longest common prefix of the contract titles is
// cleaned; a cleaned prefix of at least 10 characters is accepted, else the
// first contract's title is used.
func DeriveMarketTitle(contracts []model.ContractData) string {
	if len(contracts) == 0 {
		return unknownMarketTitle
	}
	if len(contracts) == 1 {
		return contracts[0].Title
	}

	if shared := sharedMarketTitle(contracts); shared != "" {
		return shared
	}

	titles := make([]string, len(contracts))
	for i, c := range contracts {
		titles[i] = c.Title
	}

	cleaned := cleanPrefix(LongestCommonPrefix(titles))
	if len(cleaned) >= 10 {
		return cleaned
	}
	return contracts[0].Title
}

// sharedMarketTitle returns the marketTitle metadata value when every
// contract carries the same non-empty one, "" otherwise.
func sharedMarketTitle(contracts []model.ContractData) string {
	shared := contracts[0].Metadata["marketTitle"]
	if shared == "" {
		return ""
	}
	for _, c := range contracts[1:] {
		if c.Metadata["marketTitle"] != shared {
			return ""
		}
	}
	return shared
}

// cleanPrefix tidies a raw common prefix. A prefix that stops mid-word keeps
// a partial token ("...: Pa" from "Pascal"/"Paolo"); when the prefix does not
// end in whitespace, the trailing alphanumeric run following the last of
// ":|-," is stripped. Trailing whitespace and ":,-" are then trimmed.
func cleanPrefix(prefix string) string {
	if prefix != "" && !isSpaceByte(prefix[len(prefix)-1]) {
		j := len(prefix)
		for j > 0 && isAlnumByte(prefix[j-1]) {
			j--
		}
		if j < len(prefix) && strings.LastIndexAny(prefix[:j], ":|-,") >= 0 {
			prefix = prefix[:j]
		}
	}
	return strings.TrimRight(prefix, " \t\r\n:,-")
}

func isAlnumByte(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
