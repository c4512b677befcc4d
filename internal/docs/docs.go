// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package docs holds the help text of the matsync commands.
package docs

var CliShort = `Keep build working copies in sync with git materials`
var CliLong = `
matsync brings working copies of git repositories to the exact revision a
build runs at, and reports the commits that happened on a branch since a
known revision.

Every command takes the material either from flags or from a YAML
descriptor given with --material:

  url: https://git.example.com/org/app.git
  branch: main
  username: ci
  shallowClone: true
  destination: app

Passwords are read from a file with --password-file and are masked in all
output.

Environment variables:

  MATSYNC_GIT                            git executable to run.
  MATSYNC_CACHE_DIR                      where modification checks keep
                                         their clones. Defaults to
                                         ~/.matsync/materials.
  MATSYNC_GIT_CLEAN_KEEP_IGNORED_FILES   set to Y to keep ignored files
                                         when cleaning working copies.
`

var UpdateShort = `Update a working copy to a revision of the material`
var UpdateLong = `
  matsync update [DIR] --revision REVISION [flags]

Args:

  DIR:
    Base directory of the working copy. The material destination is
    relative to it. Defaults to the current directory.

The working copy is cloned when missing, recloned when the url, the branch
or a shallow clone was asked for a full one, and otherwise fetched. It is
then deepened until it holds the oldest revision of the window, reset to
the revision and cleaned of every file git does not track. Submodules are
updated along.
`
var UpdateExamples = `
  # update ./app to a revision
  $ matsync update . --url https://git.example.com/org/app.git --destination app \
      --revision 4e55d27dc7aad26dadb02a33db0518cb5ec54888

  # shallow update that covers the last three modifications
  $ matsync update --material app.yaml --shallow --revision 4e55d27 \
      --from 7d14e6b,46cceff --modifications 3
`

var ModificationsShort = `List the commits of the material branch`
var ModificationsLong = `
  matsync modifications [flags]

Without --since, the latest commit of the branch is listed. With --since,
every commit after the revision is listed, most recent first. A revision
that does not exist in the repository is an error.

The clone used for the check lives in MATSYNC_CACHE_DIR and is never
checked out.
`
var ModificationsExamples = `
  # latest commit of main
  $ matsync modifications --url https://git.example.com/org/app.git --branch main

  # commits since a revision, as yaml
  $ matsync modifications --material app.yaml --since 46cceff --output yaml
`

var CheckShort = `Verify that the material repository and branch are reachable`
var CheckLong = `
  matsync check-connection [flags]

Lists the remote branch with the credentials of the material. Fails when
the repository cannot be reached or the branch does not exist.
`
var CheckExamples = `
  $ matsync check-connection --url https://git.example.com/org/app.git \
      --username ci --password-file /run/secrets/git
`

var StatusShort = `Display the state of a working copy`
var StatusLong = `
  matsync status [DIR] [flags]

Shows the remote, branch, revision, depth and submodules of the working
copy. When a material is given, also shows what the next update would do
with the working copy.
`
var StatusExamples = `
  $ matsync status ./app

  $ matsync status . --material app.yaml
`

var PollShort = `Wait for new commits on the material branch`
var PollLong = `
  matsync poll [flags]

Checks the branch every --interval until it has commits after --since, or
after its latest commit at start when --since is not given. The new commits
are printed and matsync exits. It gives up after --timeout with exit code
124.

With --http-bind, metrics are served on /metrics while polling.
`
var PollExamples = `
  $ matsync poll --material app.yaml --interval 30s --timeout 1h --http-bind :9090
`
