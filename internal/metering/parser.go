package metering

import "github.com/Bando358/neonmeter/internal/metering/domain"

// metricSetters maps Neon metric names onto the fixed-shape record. Unknown
// metric names are ignored so new provider metrics never break parsing.
var metricSetters = map[string]func(*domain.Metrics, float64){
	"compute_unit_seconds":           func(m *domain.Metrics, v float64) { m.ComputeUnitSeconds += v },
	"root_branch_bytes_month":        func(m *domain.Metrics, v float64) { m.RootBranchBytesMonth += v },
	"child_branch_bytes_month":       func(m *domain.Metrics, v float64) { m.ChildBranchBytesMonth += v },
	"instant_restore_bytes_month":    func(m *domain.Metrics, v float64) { m.InstantRestoreBytesMonth += v },
	"public_network_transfer_bytes":  func(m *domain.Metrics, v float64) { m.PublicNetworkTransferBytes += v },
	"private_network_transfer_bytes": func(m *domain.Metrics, v float64) { m.PrivateNetworkTransfer += v },
	"written_data_bytes":             func(m *domain.Metrics, v float64) { m.WrittenDataBytes += v },
	"extra_branches_month":           func(m *domain.Metrics, v float64) { m.ExtraBranchesMonth += v },
}

// ParseConsumption reduces a consumption response to one metrics record for
// the given project, summed across all returned periods. A project missing
// from the response yields the all-zero record, not an error.
func ParseConsumption(resp *domain.ConsumptionResponse, projectID string) domain.Metrics {
	var out domain.Metrics
	if resp == nil {
		return out
	}

	var project *domain.Project
	for i := range resp.Projects {
		if resp.Projects[i].ProjectID == projectID {
			project = &resp.Projects[i]
			break
		}
	}
	if project == nil {
		return out
	}

	for _, period := range project.Periods {
		for _, entry := range period.Consumption {
			for _, metric := range entry.Metrics {
				if set, ok := metricSetters[metric.MetricName]; ok {
					set(&out, metric.Value)
				}
			}
		}
	}
	return out
}
