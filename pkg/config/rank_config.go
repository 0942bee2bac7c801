package config

// Rank 分数段称号（状态栏显示）
type Rank struct {
	MinScore int
	Title    string
}

// ValidatorTitle 全部奖励码揭示后的称号
const ValidatorTitle = "XRP Validator ⚡👑"

// LostTitle 失败后的状态栏文字
const LostTitle = "Rekt"

// Ranks 按分数升序排列的称号表
var Ranks = []Rank{
	{MinScore: 0, Title: "Baby Whale 🐋"},
	{MinScore: 500, Title: "HODLING 💎"},
	{MinScore: 1000, Title: "Mooning 🚀"},
	{MinScore: 2500, Title: "Whale Mode 🐋👑"},
	{MinScore: 5000, Title: "Crypto God ⚡"},
}

// RankTitle 返回分数对应的称号
//
// 所有奖励码都已揭示时优先返回 ValidatorTitle
func RankTitle(score int, allUnlocked bool) string {
	if allUnlocked {
		return ValidatorTitle
	}
	title := Ranks[0].Title
	for _, r := range Ranks {
		if score >= r.MinScore {
			title = r.Title
		}
	}
	return title
}

// GameOverPhrases 失败且未破纪录时随机显示
var GameOverPhrases = []string{
	"Paper Hands Detected! 📄🙌",
	"HODL Harder Next Time! 💪",
	"Whale Down! Try Again! 🐋",
	"Diamond Hands Loading... 💎",
	"Rocket Fuel Depleted! 🚀",
}

// NewRecordPhrases 破纪录时随机显示
var NewRecordPhrases = []string{
	"Diamond Hands Achievement! 💎🙌",
	"To the Moon! New Record! 🚀🌙",
	"Whale Status Achieved! 🐋👑",
	"HODL Champion! 🏆",
	"Crypto God Mode! ⚡",
}
