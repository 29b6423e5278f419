package locale

// Key 标识一条界面文案
type Key string

const (
	ChartPlaceholder  Key = "chart.placeholder"
	DefaultTableTitle Key = "table.default_title"
	ErrInvalidRequest Key = "error.invalid_request"
	ErrUnauthorized   Key = "error.unauthorized"
	ErrBadCredentials Key = "error.bad_credentials"
	ErrTableNotFound  Key = "error.table_not_found"
	ErrNotFound       Key = "error.not_found"
	ErrPersistence    Key = "error.persistence"
	ErrInternal       Key = "error.internal"
	SkippedInFlight   Key = "skipped.in_flight"
	SkippedNoChange   Key = "skipped.no_change"
	ErrInvalidWindow  Key = "error.invalid_window"
	ErrSessionSave    Key = "error.session_save"
)

type entry struct {
	zh string
	en string
}

var catalog = map[Key]entry{
	ChartPlaceholder:  {zh: "还没有分类，先添加一个吧", en: "No categories yet, add one to start"},
	DefaultTableTitle: {zh: "我的进度", en: "My Progress"},
	ErrInvalidRequest: {zh: "请求参数无效", en: "Invalid request"},
	ErrUnauthorized:   {zh: "请先登录", en: "Please sign in first"},
	ErrBadCredentials: {zh: "用户名或密码错误", en: "Invalid username or password"},
	ErrTableNotFound:  {zh: "进度表不存在", en: "Table not found"},
	ErrNotFound:       {zh: "分类不存在", en: "Category not found"},
	ErrPersistence:    {zh: "保存失败，请重试", en: "Could not save, please retry"},
	ErrInternal:       {zh: "服务器内部错误", en: "Internal server error"},
	SkippedInFlight:   {zh: "操作过于频繁", en: "Previous change still in progress"},
	SkippedNoChange:   {zh: "已到达边界", en: "Value already at its bound"},
	ErrInvalidWindow:  {zh: "日期范围无效", en: "Invalid date range"},
	ErrSessionSave:    {zh: "会话保存失败", en: "Failed to save session"},
}

// Pick returns the text matching the request language, defaulting to Chinese.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return chinese
	}
	if chinese != "" {
		return chinese
	}
	return english
}

// Message 返回 key 对应语言的文案，未知 key 原样返回
func Message(language string, key Key) string {
	e, ok := catalog[key]
	if !ok {
		return string(key)
	}
	return Pick(language, e.en, e.zh)
}
