// Package segment 实现带边界回溯的重叠窗口文本切块。
package segment

import (
	"strings"

	"memobase-go/internal/model"
)

// 边界回溯范围：优先在窗口末尾向前找段落边界，其次句子边界，最后词边界。
const (
	paragraphLookback = 300
	sentenceLookback  = 150
	wordLookback      = 50
)

// sentenceEnders 是句子结束符集合。
const sentenceEnders = ".!?;…"

// Segment 将长文本切分为带重叠的块，偏移量按 rune 计。
// 文本先整体去除首尾空白，长度不超过 maxSize 时返回单块。
// 否则以 maxSize 为窗口、maxSize-overlap 为步长滑动，每个非末尾窗口
// 从右向前回溯寻找最近的段落/句子/词边界，都找不到时硬切。
// 迭代次数有硬上限，保证对任何输入都能终止。
func Segment(text string, maxSize, overlap int) []model.Chunk {
	if maxSize <= 0 {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	// 短文本 → 单块
	if n <= maxSize {
		return []model.Chunk{{Text: text, Start: 0, End: n}}
	}

	// 归一化 overlap
	if overlap >= maxSize {
		overlap = maxSize / 4
	}

	step := maxSize - overlap
	if step <= 0 {
		step = maxSize / 2
	}

	// 针对病态参数的硬性迭代上限，到达后直接返回已累积的结果
	maxIterations := (n / step) * 2

	var chunks []model.Chunk
	start := 0
	for iteration := 0; start < n && iteration < maxIterations; iteration++ {
		end := start + maxSize
		if end > n {
			end = n
		}

		if end < n {
			end = findBoundary(runes, start, end)
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			chunks = append(chunks, model.Chunk{Text: chunkText, Start: start, End: end})
		}

		// 窗口已覆盖到文本末尾
		if end == n {
			break
		}

		// 按重叠量回退窗口起点
		start = end - overlap
		if start < 0 {
			start = 0
		}
		if start >= end { // 防止死循环
			start = end + 1
		}
	}

	return chunks
}

// findBoundary 从窗口末尾 end 向前回溯，按优先级返回最佳切分点：
// 段落边界（连续两个换行）> 句子结束符 > 空格，均未命中则返回原始 end。
func findBoundary(runes []rune, start, end int) int {
	// 1. 段落边界
	for pos := end; pos > start && pos > end-paragraphLookback; pos-- {
		if pos < len(runes) && runes[pos-1] == '\n' && runes[pos] == '\n' {
			return pos
		}
	}

	// 2. 句子边界
	for pos := end; pos > start && pos > end-sentenceLookback; pos-- {
		if strings.ContainsRune(sentenceEnders, runes[pos-1]) {
			return pos
		}
	}

	// 3. 词边界
	for pos := end; pos > start && pos > end-wordLookback; pos-- {
		if runes[pos-1] == ' ' {
			return pos
		}
	}

	// 硬切
	return end
}
