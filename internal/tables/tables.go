// Package tables содержит политику доступа к синхронизируемым таблицам:
// фиксированный allowlist сущностей и правило владения per-record.
package tables

// ownerField имя колонки владельца; одно для всех таблиц allowlist.
const ownerField = "user_id"

// allowlist — фиксированный, задаваемый в коде список синхронизируемых
// таблиц. Не конфигурируется пользователем: имена таблиц участвуют в
// построении SQL, и закрытый список закрывает injection surface.
var allowlist = []string{
	"financial_accounts",
	"transactions",
	"budgets",
	"categories",
}

var allowed = func() map[string]struct{} {
	m := make(map[string]struct{}, len(allowlist))
	for _, t := range allowlist {
		m[t] = struct{}{}
	}
	return m
}()

// Synchronizable сообщает, входит ли таблица в allowlist.
// Таблица вне allowlist — это ошибка валидации, а не конфликт:
// до обнаружения конфликтов такая операция не доходит.
func Synchronizable(table string) bool {
	_, ok := allowed[table]
	return ok
}

// OwnerField возвращает имя поля владельца для таблицы.
func OwnerField(table string) string {
	return ownerField
}

// All возвращает все синхронизируемые таблицы в фиксированном порядке.
// Порядок стабилен: от него зависит порядок server_changes в ответе.
func All() []string {
	out := make([]string, len(allowlist))
	copy(out, allowlist)
	return out
}
