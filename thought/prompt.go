package thought

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrouter/core"
	"github.com/hupe1980/agentrouter/reasoning"
)

// Markers bracketing every todo thought. The todo stage emits nothing outside
// of them and later iterations locate the previous list through them.
const (
	TodoListBegin = "<TODO_LIST>"
	TodoListEnd   = "</TODO_LIST>"
)

const emptyTodoList = TodoListBegin + "\n" + TodoListEnd

// historyWindow bounds how many past iterations are replayed into the
// planning prompt; older turns are summarized by the todo list instead.
const historyWindow = 5

// todoHistoryWindow bounds the replay window of the todo prompt.
const todoHistoryWindow = 3

func basePrompt() string {
	return fmt.Sprintf(`Some important information for you:
- Current date and time: %s

Important rules:
- Speak in the first person. Speak professionally.
- IMPORTANT: Do everything in English.
- CRITICAL: Only answer questions within your domain using information obtained from tool/agent calls. If a question cannot be answered using available tools, state that clearly and explain that all information must come from tool call results. Never use general knowledge.`,
		time.Now().UTC().Format(time.RFC3339))
}

// previousTodo returns the last recorded todo thought or an empty bracketed list.
func previousTodo(p core.RouterProcess) string {
	if last, ok := p.LastRecord(); ok && strings.TrimSpace(last.TodoThought) != "" {
		return last.TodoThought
	}
	return emptyTodoList
}

// stateSnapshot is the compact STATE_JSON block injected into the planning
// prompt so the model can avoid redundant work.
type stateSnapshot struct {
	LastAction      []core.ToolCall `json:"lastAction"`
	LastObservation string          `json:"lastObservation"`
	AllCalls        []core.ToolCall `json:"allCalls"`
}

func buildState(p core.RouterProcess) stateSnapshot {
	state := stateSnapshot{LastObservation: p.LatestObservation()}
	for _, rec := range p.History {
		state.AllCalls = append(state.AllCalls, rec.Decision.Calls...)
	}
	if last, ok := p.LastRecord(); ok {
		state.LastAction = last.Decision.Calls
	}
	return state
}

func pastIterationsText(p core.RouterProcess, window int) string {
	history := p.History
	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) == 0 {
		return "— none —"
	}
	var sb strings.Builder
	for _, rec := range history {
		calls, _ := json.Marshal(rec.Decision.Calls)
		fmt.Fprintf(&sb, "Iteration %d\n- Thought which justifies the next step: %s\n- The function calls that were made: %s\n\n",
			rec.Index, rec.PlanningThought, calls)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// minimalToolsSnapshot renders only tool names and descriptions; the todo
// stage plans at domain level and must not see argument schemas.
func minimalToolsSnapshot(tools []core.DeclaredTool) string {
	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	entries := make([]entry, len(tools))
	for i, t := range tools {
		entries[i] = entry{Name: t.Name, Description: t.Description}
	}
	b, _ := json.Marshal(entries)
	return string(b)
}

// todoPrompt builds the request for the todo-thought stage.
func todoPrompt(p core.RouterProcess) reasoning.Request {
	latestObservation := p.LatestObservation()
	if latestObservation == "" {
		latestObservation = "null"
	}

	system := []string{
		basePrompt(),
		fmt.Sprintf("ORIGINAL_GOAL: %s", p.Question),
		fmt.Sprintf("<PREVIOUS_TODO_LIST>\n%s\n</PREVIOUS_TODO_LIST>", previousTodo(p)),
		fmt.Sprintf("<LATEST_OBSERVATION>\n%s\n</LATEST_OBSERVATION>", latestObservation),
		fmt.Sprintf("<TOOLS_SNAPSHOT>\n%s\n</TOOLS_SNAPSHOT>", minimalToolsSnapshot(p.Tools)),
		`You are an internal planning module.

Your job:
- Maintain a TODO list that tracks the steps needed to achieve ORIGINAL_GOAL.
- Update the existing TODO list based on PREVIOUS_TODO_LIST and LATEST_OBSERVATION.
- Break the goal into concrete steps that could realistically be advanced using the tools described in <TOOLS_SNAPSHOT>.
- Mark tasks as done based on LATEST_OBSERVATION: use "- [x]" for tasks that were successfully completed.
- Preserve useful existing tasks instead of rewriting everything from scratch.
- Keep the TODO list compact: in most cases no more than 3 active (unchecked) top-level tasks.

STRICT EVOLUTION RULES (CRITICAL):
- Treat PREVIOUS_TODO_LIST as an append-only log of tasks.
- You MUST NOT delete existing task lines, reorder them, or change their text.
- The ONLY allowed modification to an existing line is changing "- [ ]" to "- [x]" when the task is clearly completed.
- If you need to refine a task, append a new follow-up task instead of editing the original line.

CRITICAL CONTENT RULES FOR TASKS:
- Each task MUST be a short, single-line, high-level action description.
- You MUST NOT copy raw data from LATEST_OBSERVATION into the TODO list: no JSON, no URLs, no IDs, no long content excerpts.
- You MUST NOT write actual "CALL:" blocks here. The TODO list is a human-level plan, not executable code.

Output format (CRITICAL):
- Output ONLY a TODO list wrapped exactly like this:

<TODO_LIST>
- [x] First task
- [ ] Second task
</TODO_LIST>

- One task per line, starting with "- [ ]" or "- [x]".
- Do NOT output anything before <TODO_LIST> or after </TODO_LIST>.`,
		fmt.Sprintf("Recent iterations (oldest → newest, max %d):\n%s", todoHistoryWindow, pastIterationsText(p, todoHistoryWindow)),
	}

	return reasoning.Request{System: system, Prompt: p.Question}
}

// planningPrompt builds the request for the planning-thought stage.
func planningPrompt(p core.RouterProcess, todoThought, extendedSystemPrompt string) reasoning.Request {
	state, _ := json.Marshal(buildState(p))
	toolsSnapshot, _ := json.Marshal(p.Tools)

	todoList := strings.TrimSpace(todoThought)
	if todoList == "" {
		todoList = previousTodo(p)
	}

	system := []string{
		basePrompt(),
		fmt.Sprintf("ORIGINAL_GOAL: %s", p.Question),
		fmt.Sprintf("<STATE_JSON>\n%s\n</STATE_JSON>", state),
		todoList,
	}
	if extendedSystemPrompt != "" {
		system = append(system, extendedSystemPrompt)
	}
	system = append(system, fmt.Sprintf(`You are a reasoning engine inside an autonomous AI agent. Each call is one iteration in the same task.

You receive:
- ORIGINAL_GOAL: the user's initial request.
- <STATE_JSON>: a compact snapshot of previous actions and their observations.
- <TODO_LIST>...</TODO_LIST>: the current multi-step plan, maintained by a separate internal planning module.

Division of responsibilities:
- The TODO list is the primary plan. Your job is NOT to edit it.
- Your job IS to use the TODO list to decide which single step to advance next, check <STATE_JSON> to avoid redundant work, and decide whether to finish (DONE) or execute tool calls (CALL) in this iteration.

Planning vs efficiency:
- Always aim for the shortest successful sequence of tool calls that fully satisfies ORIGINAL_GOAL.
- If calling an additional tool would only reconfirm information you already have, you MUST NOT call it. Finish with DONE instead.

Your reply MUST begin with exactly one of these tokens:
- "DONE:" followed by the final answer to the ORIGINAL_GOAL, if the STATE indicates the goal is already satisfied or if the next action would repeat a past call without producing new information.
- "CALL:" followed by the function to execute now and the exact arguments to pass.

Goal satisfaction rubric (APPLY BEFORE proposing any tool call):
1) If the most recent observation already contains the requested data, output "DONE:" with a concise summary. Do NOT call any tools.
2) Never repeat a tool call with the same function name and identical arguments already listed in STATE.allCalls.
3) Only call a tool if at least one new fact will be produced toward the goal.
4) If any required parameter is missing or ambiguous, do NOT call that tool; explain what is missing and end with "DONE:".

Format when using CALL:
CALL: <function_name>
parameters="key1=value1, key2=value2"

Parameter echo (when you choose CALL):
- List every required parameter with concrete literal values. If you cannot provide all required parameters with literal values, you cannot call.
- NEVER include data samples or example outputs when using CALL. The tool has not been executed yet.

Stay precise. Do not invent values. One step at a time.

TOOLS SNAPSHOT (read once as reference; do not regurgitate):
<TOOLS_SNAPSHOT>
%s
</TOOLS_SNAPSHOT>`, toolsSnapshot))
	system = append(system, fmt.Sprintf("Past actions and their results (oldest → newest; last %d shown):\n%s",
		historyWindow, pastIterationsText(p, historyWindow)))

	return reasoning.Request{System: system, Prompt: p.Question}
}

// structuredPrompt builds the request for the structured-thought stage. The
// planning thought itself is the prompt; extraction runs near-deterministic.
func structuredPrompt(planningThought string, tools []core.DeclaredTool) reasoning.Request {
	toolsSnapshot, _ := json.Marshal(tools)

	system := []string{
		`You are a highly precise system that translates an assistant's thought into a structured JSON object.
Your single most important job is to distinguish between a plan to execute a tool and a plan to provide a final text answer.

HARD GATING (STRICT, OVERRIDES ALL ELSE)
- You may ONLY output tool calls if the thought contains one or more instruction blocks in the following form:
  CALL: <function_name>
  parameters="key1=value1, key2=value2"
- If the thought does NOT contain any "CALL:" blocks in this exact format, you MUST output exactly:
  "functionCalls": []
  "isFinished": true

Global execution policy:
- All "functionCalls" you output are executed in parallel within the same iteration (no chaining).
- If a potential call depends on the output of another call and its required arguments are not explicitly present in the thought, omit that dependent call from this iteration.
- Deduplicate: if the thought repeats the same tool with identical arguments, include it only once.
- Do not add, infer, or invent arguments not explicitly stated.

Follow these rules with absolute precision:

0) Descriptive intent MUST finish (no tool calls). Mentioning a tool name in prose MUST NEVER be converted into a tool call.
1) If and only if the thought contains "CALL:" blocks (see HARD GATING), the intent is to call tools. If the thought begins with "DONE:", provide a final answer. Otherwise you MUST finish: "functionCalls": [], "isFinished": true.
2) For action intents: populate "functionCalls", set "isFinished" to false, NEVER invent parameters, and never output isFinished false with an empty functionCalls array.
3) For "DONE:" intents: "functionCalls" MUST be [] and "isFinished" MUST be true.

Few-shot example (no CALL: block → finish):
Thought:
  The user's personal information is as follows:
  - Username: student
Output:
  {"functionCalls": [], "isFinished": true}

Few-shot example (CALL: block → call):
Thought:
  CALL: get_user_info
  parameters="username=student"
Output:
  {"functionCalls": [{"function": "get_user_info", "args": {"username": "student"}}], "isFinished": false}

Now, parse the following thought with zero deviation from these rules.`,
		fmt.Sprintf("Possible function calls:\n<TOOLS_SNAPSHOT>\n%s\n</TOOLS_SNAPSHOT>", toolsSnapshot),
	}

	return reasoning.Request{System: system, Prompt: planningThought, Temperature: 0.1}
}
