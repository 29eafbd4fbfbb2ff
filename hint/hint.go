// hint/hint.go
package hint

import (
	"context"
	"fmt"
)

// Provider 提示服务边界。Hint 必须总是返回一条可用的提示，
// 生成失败时由实现方降级，不允许把错误暴露给玩家。
type Provider interface {
	Hint(ctx context.Context, target int) string
}

// fallbackHints 固定降级表，按特定目标数字给出确定性的提示
var fallbackHints = map[int]string{
	1:   "It's the loneliest number you'll ever know.",
	7:   "Many cultures call this one lucky.",
	13:  "Superstitious hotels skip this floor.",
	42:  "The answer to life, the universe, and everything.",
	50:  "Right in the middle of the road.",
	77:  "Double luck, if you believe in that sort of thing.",
	100: "You can't go any higher in this game.",
}

const genericFallback = "The number hides somewhere between 1 and 100. Trust your instincts!"

// Fallback 返回目标数字的确定性降级提示
func Fallback(target int) string {
	if h, ok := fallbackHints[target]; ok {
		return h
	}
	return genericFallback
}

// Prompt builds the generation prompt for a target number.
func Prompt(target int) string {
	return fmt.Sprintf(
		"Give a short, playful one-sentence hint for guessing the number %d, without revealing the number itself.",
		target)
}

// StaticProvider 不调用外部服务，总是返回降级表内容。
// 提示服务未配置时使用。
type StaticProvider struct{}

func (StaticProvider) Hint(_ context.Context, target int) string {
	return Fallback(target)
}
