package workflow

import (
	"go.temporal.io/sdk/testsuite"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so parameter and return types deserialize correctly. The tests
// mock every call via OnActivity; registration only supplies type
// information.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Jobs{})
	env.RegisterActivity(&activity.Reconcile{})
	env.RegisterActivity(&activity.Scheduler{})
	env.RegisterActivity(&activity.Notify{})
	env.RegisterActivity(&activity.DeadLetter{})
}
