package application

import (
	"strings"
	"time"
)

const (
	exportHeader       = "Name,Email,Phone,Role,Status,Joined"
	exportJoinedLayout = "January 2, 2006"
	exportMissingPhone = "Not provided"
)

// RenderUserExport formats profiles as the registered users CSV. Name, email,
// phone and joined date are always quoted; role and status never are.
func RenderUserExport(profiles []Profile, today time.Time, location *time.Location) UserExport {
	if location == nil {
		location = time.UTC
	}

	lines := make([]string, 0, len(profiles)+1)
	lines = append(lines, exportHeader)
	for _, p := range profiles {
		phone := exportMissingPhone
		if p.PhoneNumber != nil && *p.PhoneNumber != "" {
			phone = *p.PhoneNumber
		}
		status := "Active"
		if p.IsBlocked {
			status = "Blocked"
		}
		lines = append(lines, strings.Join([]string{
			quoteField(p.Name),
			quoteField(p.Email),
			quoteField(phone),
			string(p.Role),
			status,
			quoteField(p.CreatedAt.In(location).Format(exportJoinedLayout)),
		}, ","))
	}

	return UserExport{
		Filename: "registered_users_" + today.Format("2006-01-02") + ".csv",
		Content:  []byte(strings.Join(lines, "\n")),
	}
}

func quoteField(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
