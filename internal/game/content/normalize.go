package content

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	answerPattern    = regexp.MustCompile(`^-?\d+$`)
	wordStripPattern = regexp.MustCompile(`[^A-Z0-9 ]+`)
	wordSpacePattern = regexp.MustCompile(`\s+`)
)

// NormalizeAnswer 严格解析整数答案
// 全串匹配 -?\d+，其余输入一律拒绝（小数、空串、带单位等）。
func NormalizeAnswer(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if !answerPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizeWord 规范化猜测词：转大写、去掉非字母数字、压缩空白
func NormalizeWord(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = wordStripPattern.ReplaceAllString(s, "")
	s = wordSpacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
