package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/succinct/internal/ci"
)

// Label key constants define the Docker label keys put on every CI
// container. Labels are the only record of which containers belong to
// succinct, so a crashed run can be cleaned up with "succinct ci prune".
//
// All keys share the "succinct." prefix to namespace them and avoid
// collisions with labels set by other tools.
const (
	// LabelPrefix is the common prefix for all succinct labels.
	LabelPrefix = "succinct."

	// LabelManagedBy identifies containers created by succinct.
	// Key: "succinct.managed-by", Value: always "succinct".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelRunID groups the containers of one invocation of the runner.
	// Key: "succinct.run-id", Value: a UUID.
	LabelRunID = LabelPrefix + "run-id"

	// LabelChannel stores the matrix channel the container serves.
	// Key: "succinct.channel", Value: channel name (e.g., "stable").
	LabelChannel = LabelPrefix + "channel"

	// LabelImage stores the image the container was created from.
	LabelImage = LabelPrefix + "image"

	// LabelCreatedAt stores the RFC3339 creation timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "succinct"

// ContainerLabels is the decoded form of the labels of a CI container.
type ContainerLabels struct {
	RunID     string
	Channel   string
	Image     string
	CreatedAt time.Time
}

// BuildLabels constructs the Docker label map for the container of one
// channel in one run.
func BuildLabels(runID string, ch ci.Channel, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelRunID:     runID,
		LabelChannel:   ch.Name,
		LabelImage:     ch.Image,
		// UTC keeps the value independent of the host's timezone.
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels is the inverse of BuildLabels. All missing labels are
// reported at once.
func ParseLabels(labels map[string]string) (ContainerLabels, error) {
	requiredKeys := []string{
		LabelManagedBy,
		LabelRunID,
		LabelChannel,
		LabelImage,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return ContainerLabels{}, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return ContainerLabels{}, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return ContainerLabels{}, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return ContainerLabels{
		RunID:     labels[LabelRunID],
		Channel:   labels[LabelChannel],
		Image:     labels[LabelImage],
		CreatedAt: createdAt,
	}, nil
}

// FilterLabels returns the label filter selecting succinct containers.
// A non-empty runID narrows the filter to the containers of that run.
func FilterLabels(runID string) filters.Args {
	args := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)
	if runID != "" {
		args.Add("label", LabelRunID+"="+runID)
	}
	return args
}
