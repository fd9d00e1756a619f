package planner

import "github.com/shopspring/decimal"

// Kind 表示委托类型：跟随参考利率或固定利率。
type Kind string

const (
	KindFRRDelta Kind = "FRRDELTA"
	KindLimit    Kind = "LIMIT"
)

// Phase 标记意向产生于哪个分配阶段。
type Phase string

const (
	PhasePrimary Phase = "primary"
	PhaseMaker   Phase = "maker"
	PhaseSweep   Phase = "sweep"
)

// AutoRenewFlag 为协议层的自动续借标志位。
const AutoRenewFlag int64 = 1024

// Intent 为一笔计划中的放贷委托，生成后不可变，失败不重试。
type Intent struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
	Period int
	Kind   Kind
	Flags  int64
	Phase  Phase
	Offset decimal.Decimal
}
