package conversation

// StateName - имя состояния для логов и метрик
type StateName string

const (
	StateIdle               StateName = "idle"
	StateSelectSubscription StateName = "select_subscription"
	StateEnterTarget        StateName = "enter_target"
	StateConfirmOrder       StateName = "confirm_order"
	StateCheckPayment       StateName = "check_payment"
)

func (n StateName) String() string {
	return string(n)
}

// State - состояние диалога. Каждое состояние несет только те данные,
// которые в нем допустимы, поэтому, например, счет без выбранного тарифа
// просто невозможно представить.
type State interface {
	Name() StateName
	isState()
}

type Idle struct{}

type SelectingPlan struct{}

type EnteringTarget struct{}

type ConfirmingPurchase struct {
	PlanID string
}

type ConfirmingRemoval struct {
	Target string
}

type CheckingPayment struct {
	InvoiceID string
	PlanID    string
	PayURL    string
	Checks    int
}

func (Idle) Name() StateName               { return StateIdle }
func (SelectingPlan) Name() StateName      { return StateSelectSubscription }
func (EnteringTarget) Name() StateName     { return StateEnterTarget }
func (ConfirmingPurchase) Name() StateName { return StateConfirmOrder }
func (ConfirmingRemoval) Name() StateName  { return StateConfirmOrder }
func (CheckingPayment) Name() StateName    { return StateCheckPayment }

func (Idle) isState()               {}
func (SelectingPlan) isState()      {}
func (EnteringTarget) isState()     {}
func (ConfirmingPurchase) isState() {}
func (ConfirmingRemoval) isState()  {}
func (CheckingPayment) isState()    {}
