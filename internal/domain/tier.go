package domain

import (
	"fmt"
	"strings"
)

// Tier is a user's sovereign identity verification level.
// Tiers are ordered: a higher value unlocks everything a lower one does.
type Tier uint8

const (
	TierUnverified Tier = 0
	TierBronze     Tier = 1
	TierSilver     Tier = 2
	TierGold       Tier = 3
	TierDiamond    Tier = 4
)

// AllTiers lists every tier from lowest to highest.
var AllTiers = []Tier{TierUnverified, TierBronze, TierSilver, TierGold, TierDiamond}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t <= TierDiamond
}

// String returns the English tier name.
func (t Tier) String() string {
	switch t {
	case TierUnverified:
		return "Unverified"
	case TierBronze:
		return "Bronze"
	case TierSilver:
		return "Silver"
	case TierGold:
		return "Gold"
	case TierDiamond:
		return "Diamond"
	}
	return "Unknown"
}

// JapaneseName returns the tier name shown to Japanese-locale users.
func (t Tier) JapaneseName() string {
	switch t {
	case TierUnverified:
		return "未認証"
	case TierBronze:
		return "ブロンズ"
	case TierSilver:
		return "シルバー"
	case TierGold:
		return "ゴールド"
	case TierDiamond:
		return "ダイヤモンド"
	}
	return ""
}

// ParseTier accepts a tier name (case-insensitive) or its numeric value.
func ParseTier(s string) (Tier, error) {
	s = strings.TrimSpace(s)
	for _, t := range AllTiers {
		if strings.EqualFold(s, t.String()) || s == fmt.Sprintf("%d", uint8(t)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}
