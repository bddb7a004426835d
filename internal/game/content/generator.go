package content

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/MugzLord/WIB/internal/models"
)

// 盒子与牌堆的固定规格
const (
	BoxCount = 6  // 每局盒子总数
	MegaBox  = 6  // 终局盒子，允许DONATE与WILDCARD
	DeckSize = 10 // 每盒牌数：3张保底词块 + 7张加权抽取
)

// numericTemplate 数值题模板：渲染题面并计算答案
type numericTemplate struct {
	render func(seed int64, box, players, k int) string
	answer func(seed int64, box, players, k int) int64
}

// 四套数值题模板，题面与公式一一对应
var numericTemplates = []numericTemplate{
	{
		render: func(seed int64, box, players, k int) string {
			return fmt.Sprintf("Box %d: Using seed %d, compute: (seed %% 97) + (players * %d). Answer as an integer.", box, seed, k)
		},
		answer: func(seed int64, box, players, k int) int64 {
			return seed%97 + int64(players*k)
		},
	},
	{
		render: func(seed int64, box, players, k int) string {
			return fmt.Sprintf("Box %d: Take seed %d. Compute: (seed %% 100) - %d + (players * 2). Answer as an integer.", box, seed, k)
		},
		answer: func(seed int64, box, players, k int) int64 {
			return seed%100 - int64(k) + int64(players*2)
		},
	},
	{
		render: func(seed int64, box, players, k int) string {
			return fmt.Sprintf("Box %d: Let N be number of registered players (%d). Compute: (seed %% 89) + N + %d.", box, players, k)
		},
		answer: func(seed int64, box, players, k int) int64 {
			return seed%89 + int64(players) + int64(k)
		},
	},
	{
		render: func(seed int64, box, players, k int) string {
			return fmt.Sprintf("Box %d: Compute: (seed %% 73) + (%d * players) - (box * 3).", box, k)
		},
		answer: func(seed int64, box, players, k int) int64 {
			return seed%73 + int64(k*players) - int64(box*3)
		},
	},
}

// 三套排序题题干
var orderTemplates = []string{
	"Arrange these five deliveries from earliest to latest (1 to 5):",
	"Arrange these five values from smallest to largest (1 to 5):",
	"Arrange these five checkpoints from first to last (1 to 5):",
}

// 三组短语词库，短语按词位各取一词
var (
	wordBank1 = []string{"ONE", "SILVER", "MIDNIGHT", "BRIGHT", "HIDDEN", "GOLDEN", "QUIET", "FIRST", "SOFT", "BLUE", "CRISP", "FAIR"}
	wordBank2 = []string{"FINE", "STILL", "COLD", "TRUE", "SMALL", "WILD", "GREEN", "DARK", "CLEAR", "LAST", "SWEET", "SHARP"}
	wordBank3 = []string{"AFTERNOON", "MORNING", "HORIZON", "PROMISE", "WHISPER", "GARDEN", "LANTERN", "SUNRISE", "MOONLIGHT", "COMPASS", "VICTORY", "FIRELIGHT"}
)

// Question 数值抢答题内容
type Question struct {
	Text   string `json:"text"`
	Answer int64  `json:"answer"`
}

// Ordering 排序题内容
// Correct 为条目下标按数值升序的排列。
type Ordering struct {
	Prompt  string   `json:"prompt"`
	Items   []string `json:"items"`
	Correct []int    `json:"correct"`
}

// Phrase 盒子的三词短语，词位固定为1-3
type Phrase [3]string

// String 以空格连接，用于持久化
func (p Phrase) String() string {
	return strings.Join(p[:], " ")
}

// Word 返回指定词位（1-3）的词，越界返回空串
func (p Phrase) Word(n int) string {
	if n < 1 || n > len(p) {
		return ""
	}
	return p[n-1]
}

// ParsePhrase 从持久化形式还原短语
func ParsePhrase(s string) Phrase {
	var p Phrase
	parts := strings.Fields(s)
	for i := 0; i < len(p) && i < len(parts); i++ {
		p[i] = parts[i]
	}
	return p
}

// 三路派生流：同一种子下抢答、排序、短语/牌堆互不干扰。
// 生成器只依赖入参，同样的入参永远给出逐字节一致的内容。

func triviaStream(seed int64, box, playerCount int) *rand.Rand {
	return rand.New(rand.NewSource(seed*100 + int64(box)*7 + int64(playerCount)))
}

func orderStream(seed int64, box int) *rand.Rand {
	return rand.New(rand.NewSource(seed*200 + int64(box)*19))
}

func deckStream(seed int64, box int) *rand.Rand {
	return rand.New(rand.NewSource(seed*300 + int64(box)*31))
}

// NumericQuestion 生成数值抢答题
// 种子可带盐（调用方先加到seed上），playerCount参与流派生与答案计算。
func NumericQuestion(seed int64, box, playerCount int) Question {
	rng := triviaStream(seed, box, playerCount)
	tpl := numericTemplates[rng.Intn(len(numericTemplates))]
	k := 3 + rng.Intn(9) // k ∈ [3,11]
	return Question{
		Text:   tpl.render(seed, box, playerCount, k),
		Answer: tpl.answer(seed, box, playerCount, k),
	}
}

// OrderQuestion 生成排序题
// 五个取值各不相同（重复重抽），答案键一律按数值升序。
func OrderQuestion(seed int64, box int) Ordering {
	rng := orderStream(seed, box)
	mode := orderTemplates[rng.Intn(len(orderTemplates))]

	values := make([]int, 0, 5)
	items := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		v := 10 + rng.Intn(90) // [10,99]
		for containsInt(values, v) {
			v = 10 + rng.Intn(90)
		}
		values = append(values, v)
		items = append(items, fmt.Sprintf("%c: Item %d (%d)", 'A'+i, i+1, v))
	}

	correct := []int{0, 1, 2, 3, 4}
	sort.Slice(correct, func(a, b int) bool {
		return values[correct[a]] < values[correct[b]]
	})

	prompt := fmt.Sprintf("Box %d: %s\n%s\n\nSubmit the letters A B C D E in your chosen order.",
		box, mode, strings.Join(items, "\n"))

	return Ordering{Prompt: prompt, Items: items, Correct: correct}
}

// cardWeight 加权抽卡的权重项
type cardWeight struct {
	kind   models.CardKind
	weight int
}

// deckWeights 按盒子层级返回7张加权卡的权重表
func deckWeights(box int) []cardWeight {
	switch {
	case box == 1:
		return []cardWeight{
			{models.CardPiece, 7},
			{models.CardPass, 3},
		}
	case box >= 2 && box <= 5:
		return []cardWeight{
			{models.CardPiece, 6},
			{models.CardPass, 2},
			{models.CardSteal, 2},
		}
	default:
		return []cardWeight{
			{models.CardPiece, 5},
			{models.CardPass, 2},
			{models.CardSteal, 2},
			{models.CardDonate, 2},
			{models.CardWildcard, 1},
		}
	}
}

// drawCardKind 按权重抽取卡类型：累加权重与随机值比较
func drawCardKind(rng *rand.Rand, weights []cardWeight) models.CardKind {
	total := 0
	for _, w := range weights {
		total += w.weight
	}

	value := rng.Intn(total)
	current := 0
	for _, w := range weights {
		current += w.weight
		if value < current {
			return w.kind
		}
	}
	return weights[0].kind
}

// PhraseAndDeck 生成盒子短语与洗好的牌堆
// 牌堆固定10张：词位1-3各一张保底PIECE，其余7张按层级权重抽取；
// 加权抽到的PIECE随机绑定一个词位；最后用同一条流整体洗牌。
func PhraseAndDeck(seed int64, box int) (Phrase, models.CardDeck) {
	rng := deckStream(seed, box)

	phrase := Phrase{
		wordBank1[rng.Intn(len(wordBank1))],
		wordBank2[rng.Intn(len(wordBank2))],
		wordBank3[rng.Intn(len(wordBank3))],
	}

	deck := make(models.CardDeck, 0, DeckSize)
	deck = append(deck,
		models.Card{Kind: models.CardPiece, Word: 1},
		models.Card{Kind: models.CardPiece, Word: 2},
		models.Card{Kind: models.CardPiece, Word: 3},
	)

	weights := deckWeights(box)
	for len(deck) < DeckSize {
		kind := drawCardKind(rng, weights)
		card := models.Card{Kind: kind}
		if kind == models.CardPiece {
			card.Word = 1 + rng.Intn(3)
		}
		deck = append(deck, card)
	}

	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	return phrase, deck
}

// WildcardEffect 百搭牌解析结果
type WildcardEffect string

// 百搭牌可解析出的效果
const (
	WildcardPass      WildcardEffect = "PASS"
	WildcardSteal     WildcardEffect = "STEAL"
	WildcardDonate    WildcardEffect = "DONATE"
	WildcardBonusTurn WildcardEffect = "BONUS_TURN"
)

// ResolveWildcard 解析百搭牌效果
// 在牌堆流的种子上混入卡牌下标派生独立流：同一张牌无论何时翻开，
// 解析结果固定；DONATE只在终局盒子出现。
func ResolveWildcard(seed int64, box, index int) WildcardEffect {
	effects := []WildcardEffect{WildcardPass, WildcardSteal, WildcardBonusTurn}
	if box == MegaBox {
		effects = append(effects, WildcardDonate)
	}
	rng := rand.New(rand.NewSource(seed*300 + int64(box)*31 + int64(index+1)*97))
	return effects[rng.Intn(len(effects))]
}

// containsInt 线性查找
func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
