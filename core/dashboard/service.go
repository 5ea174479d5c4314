package dashboard

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/tmdiniz/atende/core/attendance"
	"github.com/tmdiniz/atende/core/client"
	"github.com/tmdiniz/atende/core/form"
	"github.com/tmdiniz/atende/core/nps"
)

const topClientsLimit = 5

type (
	// Overview is the read-only rollup backing the reporting dashboard.
	Overview struct {
		Clients             int                       `json:"clients"`
		ActiveClients       int                       `json:"active_clients"`
		Schemas             int                       `json:"schemas"`
		Attendances         int                       `json:"attendances"`
		AttendancesByStatus map[attendance.Status]int `json:"attendances_by_status"`
		TopClients          []ClientCount             `json:"top_clients"`
		MonthlyAttendances  []MonthCount              `json:"monthly_attendances"`
		NPS                 nps.Statistics            `json:"nps"`
	}

	ClientCount struct {
		ClientID string `json:"client_id"`
		Name     string `json:"name"`
		Count    int    `json:"count"`
	}

	MonthCount struct {
		Month string `json:"month"` // YYYY-MM
		Count int    `json:"count"`
	}

	ServiceInterface interface {
		Overview() (Overview, error)
	}

	Service struct {
		clients     client.Repository
		schemas     form.Repository
		attendances attendance.Repository
		npsSvc      nps.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	clients client.Repository,
	schemas form.Repository,
	attendances attendance.Repository,
	npsSvc nps.ServiceInterface,
) *Service {
	return &Service{clients: clients, schemas: schemas, attendances: attendances, npsSvc: npsSvc}
}

// Overview computes the dashboard rollup. Reads are not linearized with
// concurrent writes; this is a reporting surface, not a ledger.
func (svc *Service) Overview() (Overview, error) {
	ov := Overview{AttendancesByStatus: make(map[attendance.Status]int, len(attendance.AllStatuses))}

	clients, err := svc.clients.FilterClients(client.QueryFilter{})
	if err != nil {
		return Overview{}, errors.Wrap(err, "listing clients")
	}
	names := make(map[string]string, len(clients))
	for _, clt := range clients {
		ov.Clients++
		if clt.IsActive {
			ov.ActiveClients++
		}
		names[clt.ID] = clt.FullName()
	}

	schemas, err := svc.schemas.FilterSchemas(form.QueryFilter{})
	if err != nil {
		return Overview{}, errors.Wrap(err, "listing schemas")
	}
	ov.Schemas = len(schemas)

	attendances, err := svc.attendances.FilterAttendances(attendance.QueryFilter{})
	if err != nil {
		return Overview{}, errors.Wrap(err, "listing attendances")
	}

	perClient := make(map[string]int)
	perMonth := make(map[string]int)
	for _, att := range attendances {
		ov.Attendances++
		ov.AttendancesByStatus[att.Status]++
		perClient[att.ClientID]++
		perMonth[att.CreatedAt.UTC().Format("2006-01")]++
	}
	ov.TopClients = topClients(perClient, names)
	ov.MonthlyAttendances = monthlySeries(perMonth)

	stats, err := svc.npsSvc.Statistics(nil)
	if err != nil {
		return Overview{}, errors.Wrap(err, "computing NPS statistics")
	}
	ov.NPS = stats

	return ov, nil
}

func topClients(perClient map[string]int, names map[string]string) []ClientCount {
	counts := make([]ClientCount, 0, len(perClient))
	for id, count := range perClient {
		counts = append(counts, ClientCount{ClientID: id, Name: names[id], Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	if len(counts) > topClientsLimit {
		counts = counts[:topClientsLimit]
	}
	return counts
}

func monthlySeries(perMonth map[string]int) []MonthCount {
	series := make([]MonthCount, 0, len(perMonth))
	for month, count := range perMonth {
		series = append(series, MonthCount{Month: month, Count: count})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series
}
