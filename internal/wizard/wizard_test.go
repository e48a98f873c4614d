package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinshop-tg-bot/internal/session"
)

func newTestEngine(onComplete func(ctx context.Context, telegramId int64, data map[string]string) (string, error)) *Engine {
	engine := NewEngine(session.NewMemoryStore())
	engine.Register(&Flow{
		Name:      "add_product",
		AdminOnly: true,
		Steps: []Step{
			{
				Name:   "title",
				Prompt: "Введите название товара",
				Apply: func(in Input, data map[string]string) error {
					if in.Text == "" {
						return errors.New("Название не может быть пустым.")
					}
					data["title"] = in.Text
					return nil
				},
			},
			{
				Name:   "price",
				Prompt: "Введите цену в монетах",
				Apply: func(in Input, data map[string]string) error {
					price, err := strconv.ParseFloat(in.Text, 64)
					if err != nil || price <= 0 {
						return errors.New("Цена должна быть положительным числом.")
					}
					data["price"] = in.Text
					return nil
				},
			},
			{
				Name:     "description",
				Prompt:   "Введите описание или skip",
				Optional: true,
				Apply: func(in Input, data map[string]string) error {
					data["description"] = in.Text
					return nil
				},
			},
		},
		OnComplete: onComplete,
	})
	return engine
}

func TestWizardWalksSteps(t *testing.T) {
	var got map[string]string
	engine := newTestEngine(func(_ context.Context, _ int64, data map[string]string) (string, error) {
		got = data
		return "Товар сохранён", nil
	})
	ctx := context.Background()

	prompt, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)
	assert.Equal(t, "Введите название товара", prompt)

	reply, handled, err := engine.HandleInput(ctx, 1, true, Input{Text: "Гайд"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "Введите цену в монетах", reply)

	reply, handled, err = engine.HandleInput(ctx, 1, true, Input{Text: "25"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "Введите описание или skip", reply)

	reply, handled, err = engine.HandleInput(ctx, 1, true, Input{Text: "Полезный гайд"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "Товар сохранён", reply)

	assert.Equal(t, "Гайд", got["title"])
	assert.Equal(t, "25", got["price"])
	assert.Equal(t, "Полезный гайд", got["description"])

	active, err := engine.Active(ctx, 1)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestWizardRepromptsOnInvalidInput(t *testing.T) {
	engine := newTestEngine(func(context.Context, int64, map[string]string) (string, error) {
		return "готово", nil
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "Гайд"})
	require.NoError(t, err)

	reply, handled, err := engine.HandleInput(ctx, 1, true, Input{Text: "дорого"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Contains(t, reply, "Цена должна быть положительным числом.")
	assert.Contains(t, reply, "Введите цену в монетах")

	// Валидный ввод после ошибки продолжает с того же шага.
	reply, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "25"})
	require.NoError(t, err)
	assert.Equal(t, "Введите описание или skip", reply)
}

func TestWizardSkipsOptionalStep(t *testing.T) {
	var got map[string]string
	engine := newTestEngine(func(_ context.Context, _ int64, data map[string]string) (string, error) {
		got = data
		return "готово", nil
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "Гайд"})
	require.NoError(t, err)
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "25"})
	require.NoError(t, err)

	reply, handled, err := engine.HandleInput(ctx, 1, true, Input{Text: "Skip"})
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, "готово", reply)
	_, hasDescription := got["description"]
	assert.False(t, hasDescription)
}

func TestWizardAbortsWhenAdminRevoked(t *testing.T) {
	engine := newTestEngine(func(context.Context, int64, map[string]string) (string, error) {
		return "готово", nil
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)

	_, handled, err := engine.HandleInput(ctx, 1, false, Input{Text: "Гайд"})
	require.NoError(t, err)
	assert.False(t, handled)

	active, err := engine.Active(ctx, 1)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestWizardNoActiveSession(t *testing.T) {
	engine := newTestEngine(func(context.Context, int64, map[string]string) (string, error) {
		return "готово", nil
	})

	_, handled, err := engine.HandleInput(context.Background(), 1, true, Input{Text: "привет"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestWizardClearsStateEvenIfCompletionFails(t *testing.T) {
	engine := newTestEngine(func(context.Context, int64, map[string]string) (string, error) {
		return "", fmt.Errorf("db is down")
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "Гайд"})
	require.NoError(t, err)
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "25"})
	require.NoError(t, err)

	_, handled, err := engine.HandleInput(ctx, 1, true, Input{Text: "skip"})
	require.True(t, handled)
	assert.Error(t, err)

	active, err := engine.Active(ctx, 1)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestWizardStartWithKeepsSeededValuesOnSkip(t *testing.T) {
	var got map[string]string
	engine := NewEngine(session.NewMemoryStore())
	engine.Register(&Flow{
		Name: "edit_product",
		Steps: []Step{
			{
				Name:     "title",
				Prompt:   "Введите новое название или skip",
				Optional: true,
				Apply: func(in Input, data map[string]string) error {
					data["title"] = in.Text
					return nil
				},
			},
			{
				Name:     "price",
				Prompt:   "Введите новую цену или skip",
				Optional: true,
				Apply: func(in Input, data map[string]string) error {
					data["price"] = in.Text
					return nil
				},
			},
		},
		OnComplete: func(_ context.Context, _ int64, data map[string]string) (string, error) {
			got = data
			return "обновлено", nil
		},
	})
	ctx := context.Background()

	prompt, err := engine.StartWith(ctx, 1, "edit_product", map[string]string{
		"id":    "7",
		"title": "Гайд",
		"price": "25",
	})
	require.NoError(t, err)
	assert.Equal(t, "Введите новое название или skip", prompt)

	// Пропущенный шаг оставляет исходное значение, введённый — заменяет.
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "skip"})
	require.NoError(t, err)
	reply, _, err := engine.HandleInput(ctx, 1, true, Input{Text: "50"})
	require.NoError(t, err)
	assert.Equal(t, "обновлено", reply)

	assert.Equal(t, "7", got["id"])
	assert.Equal(t, "Гайд", got["title"])
	assert.Equal(t, "50", got["price"])
}

func TestWizardStartOverwritesActiveFlow(t *testing.T) {
	engine := newTestEngine(func(context.Context, int64, map[string]string) (string, error) {
		return "готово", nil
	})
	ctx := context.Background()

	_, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)
	_, _, err = engine.HandleInput(ctx, 1, true, Input{Text: "Гайд"})
	require.NoError(t, err)

	prompt, err := engine.Start(ctx, 1, "add_product")
	require.NoError(t, err)
	assert.Equal(t, "Введите название товара", prompt)

	reply, _, err := engine.HandleInput(ctx, 1, true, Input{Text: "Другой гайд"})
	require.NoError(t, err)
	assert.Equal(t, "Введите цену в монетах", reply)
}
