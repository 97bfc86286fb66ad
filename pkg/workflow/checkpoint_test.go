package workflow

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FileCheckpointer", func() {
	var (
		dir string
		cp  *FileCheckpointer
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "checkpoint-test-*")
		Expect(err).NotTo(HaveOccurred())
		cp = NewFileCheckpointer(dir)
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("should round-trip a checkpoint through Save and Load", func() {
		checkpoint := Checkpoint{
			ExecutionID: "exec-1",
			TaskStatesSnapshot: map[string]TaskState{
				"build": {Status: TaskSucceeded, Output: map[string]interface{}{"path": "/out"}},
			},
			VariablesSnapshot: map[string]interface{}{"env": "staging"},
		}

		ref, err := cp.Save(ctx, checkpoint)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.StorageRef).NotTo(BeEmpty())

		loaded, err := cp.Load(ctx, ref)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.TaskStatesSnapshot["build"].Status).To(Equal(TaskSucceeded))
		Expect(loaded.VariablesSnapshot["env"]).To(Equal("staging"))
	})

	It("should report the most recently taken checkpoint as Latest", func() {
		first, err := cp.Save(ctx, Checkpoint{ExecutionID: "exec-1", TaskStatesSnapshot: map[string]TaskState{}})
		Expect(err).NotTo(HaveOccurred())

		second, err := cp.Save(ctx, Checkpoint{ExecutionID: "exec-1", TaskStatesSnapshot: map[string]TaskState{"a": {Status: TaskSucceeded}}})
		Expect(err).NotTo(HaveOccurred())

		exec := Execution{Checkpoints: []CheckpointRef{first, second}}
		latest, ok, err := cp.Latest(ctx, exec)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(latest.CheckpointID).To(Equal(second.CheckpointID))
	})

	It("should report false for an execution with no checkpoints", func() {
		_, ok, err := cp.Latest(ctx, Execution{})
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Restore", func() {
	It("should re-mark a running task as pending so it gets re-dispatched", func() {
		exec := &Execution{}
		started := nowPtr()
		Restore(exec, Checkpoint{
			TaskStatesSnapshot: map[string]TaskState{
				"build": {Status: TaskRunning, StartedAt: started},
				"test":  {Status: TaskSucceeded},
			},
		})

		Expect(exec.TaskStates["build"].Status).To(Equal(TaskPending))
		Expect(exec.TaskStates["build"].StartedAt).To(BeNil())
		Expect(exec.TaskStates["test"].Status).To(Equal(TaskSucceeded))
	})

	It("should restore variables only when the execution has none of its own", func() {
		exec := &Execution{Inputs: map[string]interface{}{"env": "prod"}}
		Restore(exec, Checkpoint{VariablesSnapshot: map[string]interface{}{"env": "staging"}})

		Expect(exec.Inputs["env"]).To(Equal("prod"))
	})
})

func nowPtr() *time.Time {
	t := time.Now()
	return &t
}
