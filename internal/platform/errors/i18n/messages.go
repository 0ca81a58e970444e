package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                = "UNKNOWN"
	CodeValidation             = "VALIDATION"
	CodeRateLimited            = "RATE_LIMITED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeAttendanceWindowClosed = "ATTENDANCE_WINDOW_CLOSED"
	CodeMembershipNotFound     = "MEMBERSHIP_NOT_FOUND"
	CodeSweepInProgress        = "SWEEP_IN_PROGRESS"
	CodeLatenessReportFailed   = "LATENESS_REPORT_FAILED"
	CodeNotFound               = "NOT_FOUND"
)

var enUSMessages = map[Code]string{
	CodeUnknown:                "internal error",
	CodeValidation:             "{{if .Reason}}{{.Reason}}{{else}}invalid request{{end}}",
	CodeRateLimited:            "too many attempts, try again later",
	CodeUnauthorized:           "unauthorized",
	CodeAttendanceWindowClosed: "attendance window has closed",
	CodeMembershipNotFound:     "{{if .Name}}{{.Name}} is not a member of this session{{else}}member is not in this session{{end}}",
	CodeSweepInProgress:        "another sweep is already running",
	CodeLatenessReportFailed:   "could not record lateness, try again later",
	CodeNotFound:               "{{if .Resource}}{{.Resource}} not found{{else}}not found{{end}}",
}

var koKRMessages = map[Code]string{
	CodeUnknown:                "내부 오류가 발생했습니다",
	CodeValidation:             "{{if .Reason}}{{.Reason}}{{else}}잘못된 요청입니다{{end}}",
	CodeRateLimited:            "시도 횟수가 너무 많습니다. 잠시 후 다시 시도하세요",
	CodeUnauthorized:           "인증이 필요합니다",
	CodeAttendanceWindowClosed: "출석 시간이 마감되었습니다",
	CodeMembershipNotFound:     "{{if .Name}}{{.Name}}님은 이 세션의 멤버가 아닙니다{{else}}세션 멤버가 아닙니다{{end}}",
	CodeSweepInProgress:        "이미 정리 작업이 진행 중입니다",
	CodeLatenessReportFailed:   "지각 기록에 실패했습니다. 잠시 후 다시 시도하세요",
	CodeNotFound:               "찾을 수 없습니다",
}

// koKRReasons translates the validation reasons raised across the service.
var koKRReasons = map[string]string{
	"request body is required":                 "요청 본문이 필요합니다",
	"invalid JSON body":                        "JSON 형식이 올바르지 않습니다",
	"members is required":                      "멤버 목록이 필요합니다",
	"member names must not be empty":           "멤버 이름은 비워 둘 수 없습니다",
	"name is required":                         "이름이 필요합니다",
	"time is required":                         "시간이 필요합니다",
	"date and time are required":               "날짜와 시간이 필요합니다",
	"invalid time format, expected HH:MM":      "시간 형식이 올바르지 않습니다 (HH:MM)",
	"invalid date format, expected YYYY-MM-DD": "날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)",
}
