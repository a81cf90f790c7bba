package gigachat

import (
	"fmt"
	"strings"
)

const systemPrompt = "Ты помощник по здоровому питанию по принципу Harvard Plate. " +
	"Всегда отвечай только валидным JSON без markdown и лишнего текста. " +
	"Строго запрещено предлагать человеческие ткани, каннибализм, несъедобные/токсичные/опасные вещества, " +
	"наркотические и нелегальные вещества. Если пользователь просит такое, все равно выдай безопасный съедобный рецепт."

const jsonRequirements = `Требования к JSON-ответу:
1) Только JSON-объект.
2) Поля:
   - title: string
   - ingredients: string[]
   - steps: string[]
   - time_minutes: int
   - servings: int
   - plate_map: object с ключами veggies_fruits, whole_grains, proteins, fats, dairy(optional), others
   - nutrition: object | null
   - tips: string[]
3) Каждое поле с типом string[] должно быть именно JSON-массивом строк, не одной строкой.
4) Для ingredients указывай конкретные количества и единицы (г, мл, шт, ч.л., ст.л.).
5) Для steps давай подробные, исполнимые шаги:
   - структура prep -> cooking -> serving;
   - указывай время шага и/или температуру, где это уместно;
   - указывай критерии готовности (цвет, текстура, температура).
6) Избегай общих фраз. Каждый шаг должен быть конкретным действием, которое можно выполнить на кухне.`

const ingredientsPromptTemplate = `Сформируй рецепт из ингредиентов пользователя.

Входные ингредиенты:
%s

Недостающие группы тарелки:
%s

Пожелания пользователя:
%s

%s
7) Учитывай принципы Harvard Plate и заполни plate_map содержательно.`

const readyDishPromptTemplate = `Подбери один конкретный рецепт блюда по запросу пользователя.

Запрос пользователя:
%s

Пожелания пользователя:
%s

%s
7) Рецепт должен быть реалистичным, выполнимым дома и соответствовать Harvard Plate.`

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "нет"
	}
	return strings.Join(items, ", ")
}

func formatPreferences(preferences string) string {
	if strings.TrimSpace(preferences) == "" {
		return "нет"
	}
	return preferences
}

func messagesForIngredients(ingredients, missingGroups []string, preferences string) []message {
	userPrompt := fmt.Sprintf(ingredientsPromptTemplate,
		formatList(ingredients),
		formatList(missingGroups),
		formatPreferences(preferences),
		jsonRequirements,
	)
	return []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: strings.TrimSpace(userPrompt)},
	}
}

func messagesForReadyDish(dishRequest, preferences string) []message {
	userPrompt := fmt.Sprintf(readyDishPromptTemplate,
		strings.TrimSpace(dishRequest),
		formatPreferences(preferences),
		jsonRequirements,
	)
	return []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: strings.TrimSpace(userPrompt)},
	}
}
