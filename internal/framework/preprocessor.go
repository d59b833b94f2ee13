package framework

import (
	"context"
	"fmt"
)

// Step 启动链中具名的一步
type Step struct {
	Name string
	Fn   ProcessorFunc
}

// PreProcessor 按顺序执行启动步骤（连接存储、组装服务、写入种子数据）
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建启动链
func NewPreProcessor(steps ...Step) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Then 追加一步
func (p *PreProcessor) Then(name string, fn ProcessorFunc) *PreProcessor {
	p.steps = append(p.steps, Step{Name: name, Fn: fn})
	return p
}

// Run 依次执行，任一步失败即停止；ctx 取消后不再执行后续步骤
func (p *PreProcessor) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %s not started: %w", step.Name, err)
		}
		if err := step.Fn(ctx); err != nil {
			return fmt.Errorf("step %s failed: %w", step.Name, err)
		}
	}
	return nil
}
