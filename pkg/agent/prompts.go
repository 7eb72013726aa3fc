package agent

import (
	"fmt"
	"strings"
)

// ImplementPrompt asks the agent for a collaborative implementation session
// on the task described by taskContext.
func ImplementPrompt(tracker, taskContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Let's work together to implement the following %s task:\n\n%s\n\n", tracker, taskContext)
	b.WriteString(`**WORKING APPROACH:**
1. Study the task requirements carefully
2. Analyze the codebase to understand relevant patterns, conventions, and architecture
3. **BEFORE making any changes**, present your analysis and proposed approach to me
4. Wait for my guidance and approval before proceeding
5. Make changes incrementally based on my feedback
6. Ask for clarification whenever requirements are unclear

**CRITICAL RULES:**
- DO NOT make any code changes without consulting me first
- Present your plan and wait for approval before implementing
- Show me what you intend to change and ask for confirmation
- Work incrementally: small changes that I can review and approve
- If you're unsure about any decision, ask me for guidance

**CODE QUALITY GUIDELINES:**
When I approve changes, follow these practices:
- Write direct, straightforward code with no unnecessary ceremony
- Choose the simplest solution that solves the problem
- Match existing patterns, naming conventions, and architectural decisions
- Follow existing code style: indentation, formatting, import organization
- Avoid over-engineering or unnecessary abstractions
- Focus strictly on requirements, no speculative features
- Keep changes minimal and focused

**SCOPE BOUNDARIES:**
- Focus only on files directly related to the task
- Do NOT refactor unrelated code
- Do NOT make changes outside the task scope
- NEVER modify untracked or gitignored files

Let's start by analyzing the task and discussing the approach together.`)
	return b.String()
}

// ReviewPrompt asks the agent to review every commit on the branch against
// baseRef, e.g. "origin/develop", and to commit only genuine fixes.
func ReviewPrompt(taskContext, commits, diff, baseRef string) string {
	if commits == "" {
		commits = "No commits yet on this branch"
	}
	if diff == "" {
		diff = "No changes yet"
	}

	var b strings.Builder
	b.WriteString("Let's perform a thorough code review of ALL work done on this branch.\n\n")
	b.WriteString(taskContext)
	fmt.Fprintf(&b, "**BRANCH COMMITS:**\n%s\n\n", commits)
	fmt.Fprintf(&b, "**ALL CHANGES ON THIS BRANCH (compared to %s):**\n```diff\n%s\n```\n\n", baseRef, diff)
	b.WriteString(`**REVIEW PROCESS:**
1. Review ALL commits listed above to understand the full implementation history
2. Examine the complete diff of all changes on this branch
3. Check git status to see if there are any uncommitted changes
4. Review each modified file for:
   - Code quality and best practices
   - Alignment with existing codebase patterns
   - Potential bugs or edge cases
   - Performance concerns
   - Security issues
   - Test coverage (if applicable)
   - Documentation completeness
5. ONLY make changes if there are ACTUAL issues found
6. Verify linter/type checker passes (if applicable)
7. Clean up any missed unused code or imports

**CRITICAL INSTRUCTIONS:**
- Do NOT make up problems that don't exist
- Do NOT make unnecessary changes just to have something to commit
- Do NOT add comments, formatting changes, or refactorings unless they fix actual issues
- If the code is good as-is, say so and DO NOT commit anything

**FINAL STEP - COMMIT (ONLY IF CHANGES WERE MADE):**
1. Check if you made ANY changes: git status
2. If NO changes were made, state that the review is complete and exit without committing
3. If changes WERE made to fix actual issues:
   a. Run the project's checks and fix any failures before proceeding
   b. Format only the files touched in this review
   c. Stage all changes: git add -A
   d. Commit with a concise message starting with 'review: ', e.g. 'review: fix error handling bug'

Provide a concise summary of your review and any changes made (or confirm no changes were needed).`)
	return b.String()
}

// AddressGitHubPrompt asks the agent to resolve the unresolved review
// comments on the current branch's pull request.
func AddressGitHubPrompt() string {
	return `Let's systematically address feedback from the PR review process.

**WORKFLOW:**
1. Use 'gh pr view --json title,number,url' to identify the current PR
2. Use 'gh api' to fetch all review comments with their resolved status
3. Filter for UNRESOLVED comments only
4. For each unresolved PR comment:
   - Read and understand what change is being requested
   - Locate the relevant code
   - Implement the fix/improvement as requested
   - Verify the fix works and doesn't break existing functionality
   - Stage and commit the fix with a concise lowercase message under 80 characters,
     e.g. 'fix error handling in user service'
5. Continue until all PR feedback is addressed

**CONSTRAINTS:**
- Stay STRICTLY within PR scope: only modify files already changed in this PR
- Do NOT make unnecessary changes beyond what's requested
- NEVER modify untracked files or gitignored files (.env, credentials, etc.)
- Choose the simplest solution that addresses the feedback
- If a comment is unclear, implement the most reasonable interpretation

Provide a concise summary when complete.`
}

// AddressTrackerPrompt asks the agent to implement what the task's
// description and comments still require. taskContext may be empty.
func AddressTrackerPrompt(tracker, taskContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Let's systematically address requirements from the %s task.\n\n", tracker)
	if taskContext != "" {
		b.WriteString(taskContext)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, `**WORKFLOW:**
1. Review the %[1]s task description and comments above for requirements
2. Identify any missing functionality or requirements not yet implemented
3. For each requirement or piece of feedback:
   - Read and understand what change is being requested
   - Locate the relevant code or identify where new code should be added
   - Implement the fix/improvement as requested
   - Verify the fix works and doesn't break existing functionality
   - Stage and commit the fix with a concise lowercase message under 80 characters,
     e.g. 'implement user validation feature'
4. Continue until all %[1]s requirements are addressed

**CONSTRAINTS:**
- Focus on implementing missing functionality based on %[1]s requirements
- Do NOT make unnecessary changes beyond what's requested
- NEVER modify untracked files or gitignored files (.env, credentials, etc.)
- Choose the simplest solution that addresses the requirements
- Consider %[1]s comments as requirements to implement, not just context

Provide a concise summary when complete.`, tracker)
	return b.String()
}
