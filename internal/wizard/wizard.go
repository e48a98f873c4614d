package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"coinshop-tg-bot/internal/session"
)

// SkipToken — текст, которым пользователь пропускает необязательный шаг.
const SkipToken = "skip"

// Input — содержимое очередного сообщения пользователя в диалоге.
type Input struct {
	Text         string
	PhotoID      string
	DocumentID   string
	DocumentName string
}

// Step — один шаг диалога. Apply валидирует ввод и складывает значение
// в данные сессии; ошибка валидации возвращает пользователя на тот же шаг.
type Step struct {
	Name     string
	Prompt   string
	Optional bool
	Apply    func(in Input, data map[string]string) error
}

// Flow — пошаговый диалог. OnComplete вызывается после последнего шага
// с накопленными данными и возвращает итоговое сообщение пользователю.
type Flow struct {
	Name       string
	AdminOnly  bool
	Steps      []Step
	OnComplete func(ctx context.Context, telegramId int64, data map[string]string) (string, error)
}

func (f *Flow) stepIndex(name string) int {
	for i, s := range f.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Engine ведёт активные диалоги по состояниям в хранилище сессий.
type Engine struct {
	sessions session.Store
	flows    map[string]*Flow
}

func NewEngine(sessions session.Store) *Engine {
	return &Engine{sessions: sessions, flows: make(map[string]*Flow)}
}

func (e *Engine) Register(flow *Flow) {
	e.flows[flow.Name] = flow
}

// Start открывает диалог с первого шага и возвращает его подсказку.
// Уже активный диалог пользователя при этом перезаписывается.
func (e *Engine) Start(ctx context.Context, telegramId int64, flowName string) (string, error) {
	return e.StartWith(ctx, telegramId, flowName, nil)
}

// StartWith открывает диалог с заранее заполненными данными. Это нужно
// диалогам редактирования: skip на шаге оставляет исходное значение.
func (e *Engine) StartWith(ctx context.Context, telegramId int64, flowName string, seed map[string]string) (string, error) {
	flow, ok := e.flows[flowName]
	if !ok {
		return "", fmt.Errorf("unknown flow %q", flowName)
	}
	state := session.NewState(flow.Name, flow.Steps[0].Name)
	for k, v := range seed {
		state.Data[k] = v
	}
	if err := e.sessions.Set(ctx, telegramId, state); err != nil {
		return "", err
	}
	return flow.Steps[0].Prompt, nil
}

// Active сообщает, есть ли у пользователя незавершённый диалог.
func (e *Engine) Active(ctx context.Context, telegramId int64) (bool, error) {
	state, err := e.sessions.Get(ctx, telegramId)
	if err != nil {
		return false, err
	}
	return state != nil, nil
}

// Cancel прерывает диалог пользователя.
func (e *Engine) Cancel(ctx context.Context, telegramId int64) error {
	return e.sessions.Delete(ctx, telegramId)
}

// HandleInput обрабатывает сообщение в рамках активного диалога.
// handled == false означает, что диалога нет и сообщение чужое.
// Права проверяются на каждом шаге: если диалог админский, а пользователь
// перестал быть админом, диалог сбрасывается.
func (e *Engine) HandleInput(ctx context.Context, telegramId int64, isAdmin bool, in Input) (reply string, handled bool, err error) {
	state, err := e.sessions.Get(ctx, telegramId)
	if err != nil {
		return "", false, err
	}
	if state == nil {
		return "", false, nil
	}

	flow, ok := e.flows[state.Flow]
	if !ok {
		_ = e.sessions.Delete(ctx, telegramId)
		return "", false, fmt.Errorf("session refers to unknown flow %q", state.Flow)
	}
	if flow.AdminOnly && !isAdmin {
		_ = e.sessions.Delete(ctx, telegramId)
		slog.Warn("admin flow aborted for non-admin", "flow", flow.Name, "telegramId", telegramId)
		return "", false, nil
	}

	idx := flow.stepIndex(state.Step)
	if idx < 0 {
		_ = e.sessions.Delete(ctx, telegramId)
		return "", false, fmt.Errorf("session refers to unknown step %q of flow %q", state.Step, flow.Name)
	}
	step := flow.Steps[idx]

	skipped := step.Optional && strings.EqualFold(strings.TrimSpace(in.Text), SkipToken)
	if !skipped {
		if applyErr := step.Apply(in, state.Data); applyErr != nil {
			return fmt.Sprintf("%s\n\n%s", applyErr.Error(), step.Prompt), true, nil
		}
	}

	if idx+1 < len(flow.Steps) {
		state.Step = flow.Steps[idx+1].Name
		if err := e.sessions.Set(ctx, telegramId, state); err != nil {
			return "", true, err
		}
		return flow.Steps[idx+1].Prompt, true, nil
	}

	// Последний шаг: состояние сбрасывается до вызова OnComplete, чтобы
	// следующее сообщение уже не попало в диалог.
	if err := e.sessions.Delete(ctx, telegramId); err != nil {
		slog.Error("failed to clear session", "telegramId", telegramId, "error", err)
	}
	message, err := flow.OnComplete(ctx, telegramId, state.Data)
	if err != nil {
		return "", true, err
	}
	return message, true, nil
}
